package models

import "time"

// CreateSiteRequest is the request body for launching a site pipeline
type CreateSiteRequest struct {
	Document          string `json:"document" binding:"required"`
	OwnerId           string `json:"owner_id"`
	ExistingProjectId string `json:"existing_project_id"`
	WaitForReady      bool   `json:"wait_for_ready"`
}

// EditSiteRequest is the request body for applying a change request to a site
type EditSiteRequest struct {
	Instruction  string `json:"instruction" binding:"required"`
	WaitForReady bool   `json:"wait_for_ready"`
}

// PipelineResult is the normalized outcome of a pipeline run or redeploy
type PipelineResult struct {
	URL          string     `json:"url"`
	DeploymentId string     `json:"deployment_id"`
	ProjectId    string     `json:"project_id"`
	Status       ReadyState `json:"status"`
}

// LaunchResponse is returned when a pipeline run has been queued
type LaunchResponse struct {
	SiteId string `json:"site_id"`
	Status string `json:"status"`
}

// SiteResponse represents a site record returned by the API
type SiteResponse struct {
	SiteId       string                       `json:"site_id"`
	OwnerId      string                       `json:"owner_id,omitempty"`
	BusinessName string                       `json:"business_name,omitempty"`
	ProjectName  string                       `json:"project_name,omitempty"`
	ProjectId    string                       `json:"project_id,omitempty"`
	DeploymentId string                       `json:"deployment_id,omitempty"`
	URL          string                       `json:"url,omitempty"`
	ReadyState   ReadyState                   `json:"ready_state,omitempty"`
	Status       string                       `json:"status"`
	ErrorKind    string                       `json:"error_kind,omitempty"`
	Error        string                       `json:"error,omitempty"`
	Revision     int                          `json:"revision"`
	Stages       map[string]*BuildStageStatus `json:"stages,omitempty"`
	BuildLogs    []BuildLogEntry              `json:"build_logs,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// ToResponse converts a SiteBuild to its API representation
func (s *SiteBuild) ToResponse() SiteResponse {
	return SiteResponse{
		SiteId:       s.SiteId,
		OwnerId:      s.OwnerId,
		BusinessName: s.BusinessName,
		ProjectName:  s.ProjectName,
		ProjectId:    s.ProjectId,
		DeploymentId: s.DeploymentId,
		URL:          s.URL,
		ReadyState:   s.ReadyState,
		Status:       s.Status,
		ErrorKind:    s.ErrorKind,
		Error:        s.Error,
		Revision:     s.Revision,
		Stages:       s.Stages,
		BuildLogs:    s.BuildLogs,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error        string `json:"error"`
	Message      string `json:"message,omitempty"`
	DeploymentId string `json:"deployment_id,omitempty"`
}
