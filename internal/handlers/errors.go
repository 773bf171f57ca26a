package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/queue"
	"github.com/imyashkale/sitebuilder/internal/repository"
	"github.com/imyashkale/sitebuilder/internal/services"
)

// respondError maps service errors to status codes. A timeout carries the
// deployment id so the caller can poll it later.
func respondError(c *gin.Context, err error) {
	var timeoutErr *services.DeploymentTimeoutError

	status := http.StatusInternalServerError
	body := models.ErrorResponse{Error: "internal_error", Message: err.Error()}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, body.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrOwnerNotFound):
		status, body.Error = http.StatusNotFound, "owner_not_found"
	case errors.Is(err, services.ErrSiteBusy):
		status, body.Error = http.StatusConflict, "site_busy"
	case errors.Is(err, services.ErrSiteNotDeployed):
		status, body.Error = http.StatusConflict, "site_not_deployed"
	case errors.Is(err, services.ErrUsageUnavailable):
		status, body.Error = http.StatusServiceUnavailable, "usage_unavailable"
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		status, body.Error = http.StatusServiceUnavailable, "queue_unavailable"
	case errors.As(err, &timeoutErr):
		status, body.Error = http.StatusGatewayTimeout, "deployment_timeout"
		body.DeploymentId = timeoutErr.DeploymentID
	default:
		switch services.KindOf(err) {
		case services.KindValidation:
			status, body.Error = http.StatusBadGateway, "validation_error"
		case services.KindContract:
			status, body.Error = http.StatusBadGateway, "contract_error"
		case services.KindTransport:
			status, body.Error = http.StatusBadGateway, "deploy_error"
		}
	}

	fields := map[string]interface{}{
		"path":   c.Request.URL.Path,
		"status": status,
		"error":  err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.WithFields(fields).Error("Request failed")
	} else {
		logger.WithFields(fields).Warn("Request rejected")
	}

	c.JSON(status, body)
}
