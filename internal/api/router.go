package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timmy/gifforge/internal/api/handler"
	"github.com/timmy/gifforge/internal/api/middleware"
	"github.com/timmy/gifforge/internal/logger"
	"github.com/timmy/gifforge/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	searchService *service.SearchService,
	processingService *service.ProcessingService,
	shareService *service.ShareService,
	log *logger.Logger,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	searchHandler := handler.NewSearchHandler(searchService)
	processHandler := handler.NewProcessHandler(processingService)
	shareHandler := handler.NewShareHandler(shareService)

	// Health check
	r.GET("/health", healthHandler.Health)

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Search
		v1.GET("/search", searchHandler.Search)
		v1.GET("/gifs/:id", searchHandler.GetGif)

		// Processing
		v1.POST("/process", processHandler.Process)
		v1.GET("/process/progress", processHandler.Progress)
		v1.GET("/process/events", processHandler.Events)
		v1.POST("/process/cancel", processHandler.Cancel)
		v1.GET("/process/memory", processHandler.Memory)

		// Artifacts
		v1.GET("/artifacts/:id", processHandler.Artifact)

		// Sharing
		v1.POST("/share", shareHandler.Create)
		v1.GET("/share/:id", shareHandler.Get)
	}

	return r
}
