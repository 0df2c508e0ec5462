package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-gov.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	syncHandler *handlers.SyncHandler
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			// Ingestion pipeline
			sync.POST("/events", d.syncHandler.IngestEvent)
			sync.GET("/events/stats", d.syncHandler.ProcessingStats)
			sync.DELETE("/events/queue", d.syncHandler.ClearQueue)

			// Reconciliation sweep
			sync.POST("/start", d.syncHandler.StartSync)
			sync.POST("/stop", d.syncHandler.StopSync)
			sync.POST("/force", d.syncHandler.ForceSync)
			sync.GET("/status", d.syncHandler.SyncStatus)

			// Reporting
			sync.GET("/consistency", d.syncHandler.ConsistencyReport)
			sync.GET("/drift", d.syncHandler.DriftSummary)
			sync.GET("/audit", d.syncHandler.ListAuditEvents)
		}
	}
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
