package models

import "time"

// Site statuses tracked on a SiteBuild
const (
	SiteStatusQueued     = "queued"
	SiteStatusInProgress = "in_progress"
	SiteStatusCompleted  = "completed"
	SiteStatusFailed     = "failed"
	SiteStatusTimedOut   = "timed_out"
)

// Stage status values
const (
	StagePending    = "pending"
	StageInProgress = "in_progress"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// BuildStageStatus represents the status of a single pipeline stage
type BuildStageStatus struct {
	Status      string     `json:"status" dynamodbav:"Status"`
	StartedAt   *time.Time `json:"started_at,omitempty" dynamodbav:"StartedAt,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" dynamodbav:"CompletedAt,omitempty"`
	Error       string     `json:"error,omitempty" dynamodbav:"Error,omitempty"`
}

// BuildLogEntry is a single stage log line from a pipeline run
type BuildLogEntry struct {
	Timestamp time.Time `json:"timestamp" dynamodbav:"Timestamp"`
	Stage     string    `json:"stage" dynamodbav:"Stage"`
	Level     string    `json:"level" dynamodbav:"Level"` // "info", "warning", "error"
	Message   string    `json:"message" dynamodbav:"Message"`
}

// SiteBuild tracks one generated site across its first deploy and later edits
type SiteBuild struct {
	SiteId       string
	OwnerId      string
	OwnerName    string
	BusinessName string
	ProjectName  string
	ProjectId    string
	DeploymentId string
	URL          string
	ReadyState   ReadyState
	Status       string
	ErrorKind    string
	Error        string
	WaitForReady bool
	Stages       map[string]*BuildStageStatus
	BuildLogs    []BuildLogEntry
	ArchiveKey   string
	Revision     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
