package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"collab-docs/config"
	"collab-docs/hub"
	"collab-docs/middleware"
	"collab-docs/routes"
	"collab-docs/services"
	"collab-docs/store"
	"collab-docs/utils"
)

func main() {
	cfg := config.Load()

	DB := config.InitDb(cfg)
	utils.AutoMigrateModels(DB)
	utils.SetSigningKey([]byte(cfg.JWTSecret))

	st := store.NewGorm(DB)

	deps := routes.Deps{
		Documents: services.NewDocumentService(st),
		Engine:    services.NewChangeEngine(st),
		Hub:       hub.New(st),
		Limiter:   middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}

	r := gin.Default()
	routes.SetRoutes(r, deps)

	log.Println("Starting server on :" + cfg.ServerPort)

	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Could not start server due to error : %v", err)
	}
}
