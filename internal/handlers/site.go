package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/services"
)

// SiteAPI is the subset of the site service exposed over HTTP
type SiteAPI interface {
	Launch(ctx context.Context, req models.CreateSiteRequest) (*models.SiteBuild, error)
	Run(ctx context.Context, req models.CreateSiteRequest) (*models.PipelineResult, error)
	Get(ctx context.Context, siteID string) (*models.SiteBuild, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.SiteBuild, error)
	Refresh(ctx context.Context, siteID string) (*models.SiteBuild, error)
	EditAndRedeploy(ctx context.Context, siteID, instruction string, waitForReady bool) (*models.PipelineResult, error)
	DeploymentStatus(ctx context.Context, deploymentID string) (*models.DeploymentRecord, error)
	Costs(ctx context.Context, siteID string) (*models.SiteCostResponse, error)
}

// SiteHandler handles site generation and redeploy requests
type SiteHandler struct {
	sites SiteAPI
}

// NewSiteHandler creates a new site handler
func NewSiteHandler(sites SiteAPI) *SiteHandler {
	return &SiteHandler{
		sites: sites,
	}
}

// Launch queues a pipeline run and returns immediately
func (h *SiteHandler) Launch(c *gin.Context) {
	var req models.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	site, err := h.sites.Launch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"site_id":      site.SiteId,
		"requested_by": c.GetString("user_id"),
	}).Info("Site launch accepted")

	c.JSON(http.StatusAccepted, models.LaunchResponse{SiteId: site.SiteId, Status: site.Status})
}

// Run executes the pipeline within the request
func (h *SiteHandler) Run(c *gin.Context) {
	var req models.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	result, err := h.sites.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a site record
func (h *SiteHandler) Get(c *gin.Context) {
	site, err := h.sites.Get(c.Request.Context(), c.Param("site_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, site.ToResponse())
}

// List returns the sites of an owning record
func (h *SiteHandler) List(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "bad_request", Message: "owner_id query parameter is required"})
		return
	}

	sites, err := h.sites.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.SiteResponse, 0, len(sites))
	for _, site := range sites {
		responses = append(responses, site.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"sites": responses,
		"count": len(responses),
	})
}

// Refresh re-reads the deployment state of a site
func (h *SiteHandler) Refresh(c *gin.Context) {
	site, err := h.sites.Refresh(c.Request.Context(), c.Param("site_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, site.ToResponse())
}

// Edit applies a change request and redeploys the site
func (h *SiteHandler) Edit(c *gin.Context) {
	var req models.EditSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	siteID := c.Param("site_id")
	result, err := h.sites.EditAndRedeploy(c.Request.Context(), siteID, req.Instruction, req.WaitForReady)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"site_id":       siteID,
		"deployment_id": result.DeploymentId,
		"requested_by":  c.GetString("user_id"),
	}).Info("Site edit deployed")

	c.JSON(http.StatusOK, result)
}

// Costs returns the estimated model spend on a site
func (h *SiteHandler) Costs(c *gin.Context) {
	report, err := h.sites.Costs(c.Request.Context(), c.Param("site_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// DeploymentStatus returns the provider's current view of a deployment
func (h *SiteHandler) DeploymentStatus(c *gin.Context) {
	record, err := h.sites.DeploymentStatus(c.Request.Context(), c.Param("deployment_id"))
	if err != nil {
		var deployErr *services.DeployError
		if errors.As(err, &deployErr) && deployErr.StatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "Deployment not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
