package main

import (
	"log"

	"lodgepos_backend/internal/config"
	"lodgepos_backend/internal/database"
	"lodgepos_backend/pkg/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.LogError(err, "Failed to load configuration")
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.InitDB(cfg.DSN())
	if err != nil {
		utils.LogError(err, "Failed to connect to database")
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	utils.LogInfo("Database connection established", map[string]interface{}{
		"host": cfg.DBHost,
		"name": cfg.DBName,
	})

	if err := database.RunMigrations(db); err != nil {
		utils.LogError(err, "Failed to run migrations")
		log.Fatalf("Failed to run migrations: %v", err)
	}
	utils.LogInfo("Schema migrations applied")
}
