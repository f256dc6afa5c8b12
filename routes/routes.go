package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collab-docs/controller"
	"collab-docs/hub"
	"collab-docs/middleware"
	"collab-docs/services"
)

type Deps struct {
	Documents *services.DocumentService
	Engine    *services.ChangeEngine
	Hub       *hub.Hub
	Limiter   *middleware.RateLimiter
}

func SetRoutes(r *gin.Engine, deps Deps) {
	docs := controller.NewDocumentController(deps.Documents)
	changes := controller.NewChangeController(deps.Engine)

	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	authed := r.Group("/", middleware.Auth())
	authed.GET("/ws", controller.ServeWS(deps.Hub))
	authed.GET("/documents", docs.List)
	authed.GET("/documents/:id", docs.Get)
	authed.GET("/search", docs.Search)

	mutating := authed.Group("/", deps.Limiter.Middleware())
	mutating.POST("/documents", docs.Create)
	mutating.PUT("/documents/:id", docs.Update)
	mutating.DELETE("/documents/:id", docs.Delete)
	mutating.POST("/documents/:id/changes", changes.ApplyChanges)
}
