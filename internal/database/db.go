package database

import (
	"fmt"
	"log"

	"github.com/justsurfingit/jobapp-ai/internal/config"
	"github.com/justsurfingit/jobapp-ai/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the postgres database and migrates the tracker tables.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Println("Database connection established")

	log.Println("Running Migrations...")
	if err := db.AutoMigrate(
		&models.Application{},
		&models.ApplicationEvent{},
		&models.MailboxState{},
		&models.ProcessedEmail{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
