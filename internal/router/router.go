package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imyashkale/sitebuilder/internal/handlers"
	"github.com/imyashkale/sitebuilder/internal/middleware"
)

// Setup configures and returns the application router
func Setup(
	healthHandler *handlers.HealthHandler,
	siteHandler *handlers.SiteHandler,
	auth gin.HandlerFunc,
	allowedOrigins []string,
) *gin.Engine {

	// Create a new Gin router
	router := gin.Default()

	// Apply CORS middleware globally
	router.Use(middleware.CORS(allowedOrigins...))

	// Unauthenticated operational endpoints
	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(auth)

	sites := v1.Group("/sites")
	{
		sites.POST("", siteHandler.Launch)
		sites.GET("", siteHandler.List)
		sites.POST("/run", siteHandler.Run)
		sites.GET("/:site_id", siteHandler.Get)
		sites.POST("/:site_id/refresh", siteHandler.Refresh)
		sites.POST("/:site_id/edits", siteHandler.Edit)
		sites.GET("/:site_id/costs", siteHandler.Costs)
	}

	v1.GET("/deployments/:deployment_id", siteHandler.DeploymentStatus)

	return router
}
