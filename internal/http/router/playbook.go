package router

import (
	"github.com/gin-gonic/gin"

	"stitchflow.app/conductor/internal/http/handler"
	"stitchflow.app/conductor/internal/http/middleware"
)

// PlaybookRouter sets up playbook routes. DELETE requires the admin API
// key since it discards the playbook and its plays.
func PlaybookRouter(rg *gin.RouterGroup, h *handler.PlaybookHandler, adminAPIKey string) {
	rg.POST("", h.Generate)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/gaps", h.Gaps)
	rg.POST("/:id/questions", h.Questions)
	rg.POST("/:id/answers", h.Answers)
	rg.POST("/:id/refine", h.Refine)
	rg.POST("/:id/activate", h.Activate)

	admin := rg.Group("")
	admin.Use(middleware.RequireAdminAPIKey(adminAPIKey))
	{
		admin.DELETE("/:id", h.Delete)
	}
}
