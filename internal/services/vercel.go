package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/metrics"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/poll"
)

const (
	deployFramework = "vite"
	deployTarget    = "production"
	maxResponseBody = 1 << 20
)

// Deployer creates hosted deployments and observes their state
type Deployer interface {
	Create(ctx context.Context, name string, files models.FileSet, existingProjectID string) (*models.DeploymentRecord, error)
	GetStatus(ctx context.Context, deploymentID string) (*models.DeploymentRecord, error)
	WaitUntilTerminal(ctx context.Context, deploymentID string) (*models.DeploymentRecord, error)
}

// VercelClient talks to the Vercel deployments API
type VercelClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	teamID     string
	poller     *poll.Poller
}

// NewVercelClient creates a new deployment client. teamID may be empty.
// Requests are bounded by the caller's context only.
func NewVercelClient(baseURL, token, teamID string, policy poll.Policy) *VercelClient {
	return &VercelClient{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		token:      token,
		teamID:     teamID,
		poller:     poll.New(policy),
	}
}

type deploymentFile struct {
	File     string `json:"file"`
	Data     string `json:"data"`
	Encoding string `json:"encoding"`
}

type projectSettings struct {
	Framework string `json:"framework"`
}

type createDeploymentRequest struct {
	Name            string           `json:"name"`
	Files           []deploymentFile `json:"files"`
	Framework       string           `json:"framework"`
	ProjectSettings projectSettings  `json:"projectSettings"`
	Target          string           `json:"target"`
	Project         string           `json:"project,omitempty"`
}

// Create uploads files as a production deployment. With existingProjectID the
// deployment updates that project instead of creating a new one.
func (c *VercelClient) Create(ctx context.Context, name string, files models.FileSet, existingProjectID string) (*models.DeploymentRecord, error) {
	body := createDeploymentRequest{
		Name:            name,
		Files:           make([]deploymentFile, 0, len(files)),
		Framework:       deployFramework,
		ProjectSettings: projectSettings{Framework: deployFramework},
		Target:          deployTarget,
		Project:         existingProjectID,
	}
	for _, f := range files {
		body.Files = append(body.Files, deploymentFile{File: f.Path, Data: f.Content, Encoding: "utf-8"})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment request: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"project_name":        name,
		"existing_project_id": existingProjectID,
		"files":               len(files),
	}).Info("Creating deployment")

	record, err := c.do(ctx, http.MethodPost, "/v13/deployments", payload)
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"deployment_id": record.ID,
		"ready_state":   record.ReadyState,
	}).Info("Deployment created")
	return record, nil
}

// GetStatus fetches the current state of a deployment
func (c *VercelClient) GetStatus(ctx context.Context, deploymentID string) (*models.DeploymentRecord, error) {
	metrics.DeployPolls.Inc()
	return c.do(ctx, http.MethodGet, "/v13/deployments/"+url.PathEscape(deploymentID), nil)
}

// WaitUntilTerminal polls until the deployment is READY, ERROR or CANCELED.
// Running out of attempts returns a DeploymentTimeoutError.
func (c *VercelClient) WaitUntilTerminal(ctx context.Context, deploymentID string) (*models.DeploymentRecord, error) {
	record, err := poll.Until(ctx, c.poller,
		func(ctx context.Context) (*models.DeploymentRecord, error) {
			return c.GetStatus(ctx, deploymentID)
		},
		func(r *models.DeploymentRecord) bool {
			return r.ReadyState.IsTerminal()
		},
	)

	var exhausted *poll.ExhaustedError[*models.DeploymentRecord]
	if errors.As(err, &exhausted) {
		last := ""
		if exhausted.Last != nil {
			last = string(exhausted.Last.ReadyState)
		}
		logger.WithFields(map[string]interface{}{
			"deployment_id": deploymentID,
			"attempts":      exhausted.Attempts,
			"last_state":    last,
		}).Warn("Deployment did not reach a terminal state in time")
		return exhausted.Last, &DeploymentTimeoutError{DeploymentID: deploymentID, Attempts: exhausted.Attempts, LastState: last}
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (c *VercelClient) do(ctx context.Context, method, path string, payload []byte) (*models.DeploymentRecord, error) {
	endpoint := c.baseURL + path
	if c.teamID != "" {
		endpoint += "?teamId=" + url.QueryEscape(c.teamID)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deployment request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WithFields(map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Error("Hosting provider rejected request")
		return nil, &DeployError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var record models.DeploymentRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to decode deployment response: %w", err)
	}
	return &record, nil
}
