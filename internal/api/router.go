package api

import (
	"net/http"

	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/database"
	"github.com/customer-ingest/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router.
func NewRouter(services *service.Services, tokens tokenValidator, db *database.DB, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	authHandler := NewAuthHandler(services, log)
	importHandler := NewImportHandler(services, cfg, log)

	router.GET("/health", healthCheck(db))

	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/token", authHandler.Token)
	}

	imports := router.Group("/imports")
	imports.Use(authMiddleware(tokens))
	{
		imports.POST("", importHandler.CreateImport)
		imports.GET("/:id", importHandler.GetImport)
		imports.GET("/:id/errors", importHandler.GetImportErrors)
	}

	return router
}

func healthCheck(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
