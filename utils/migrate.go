package utils

import (
	"log"

	"gorm.io/gorm"

	"collab-docs/models"
)

func AutoMigrateModels(DB *gorm.DB) {
	if err := DB.AutoMigrate(
		&models.Document{},
		&models.Collaborator{},
		&models.Operation{},
		&models.AnalyticsEvent{},
	); err != nil {
		log.Fatalf("auto-migration failed: %v", err)
	}
}
