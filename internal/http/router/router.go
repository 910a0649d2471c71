package router

import (
	"github.com/gin-gonic/gin"

	"stitchflow.app/conductor/internal/http/handler"
	"stitchflow.app/conductor/internal/service"
)

type RouterConfig struct {
	AdminAPIKey     string
	IsProduction    bool
	TraceHeaderName string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		playbookHandler := handler.NewPlaybookHandler(services.Playbooks(), cfg.TraceHeaderName)
		PlaybookRouter(v1.Group("/playbooks"), playbookHandler, cfg.AdminAPIKey)
	}
}
