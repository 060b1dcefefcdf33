package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/arbscan/internal/api/handlers"
	"github.com/irfndi/arbscan/internal/middleware"
	"github.com/irfndi/arbscan/internal/services"
)

// Scanner is the read side of services.ScannerService the API serves.
type Scanner interface {
	handlers.StatusProvider
	handlers.ResultProvider
}

// NewRouter builds the gin engine with recovery, tracing and request logging.
func NewRouter(serviceName string, logger logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestLogger(logger, "/health"))
	return router
}

// SetupRoutes registers the status API. redis may be nil.
func SetupRoutes(router *gin.Engine, scanner Scanner, redis handlers.HealthChecker) {
	health := handlers.NewHealthHandler(scanner, redis)
	opportunities := handlers.NewOpportunityHandler(scanner)

	router.GET("/health", health.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/opportunities", opportunities.GetOpportunities)
		v1.GET("/cycle", opportunities.GetCycle)
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, scanner.Status())
		})
	}
}

var _ Scanner = (*services.ScannerService)(nil)
