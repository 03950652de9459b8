package main

import (
	"log"
	"os"
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/config"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/metrics"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/routes"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/services/matching"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/services/reconciliation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db := config.InitDB(cfg)

	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	metrics.Init(db, logger)

	pct, err := cfg.Tolerance()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	reconService := reconciliation.NewReconciliationService(db,
		reconciliation.WithTolerance(matching.Tolerance{Percent: pct}),
		reconciliation.WithMaxSuggestions(cfg.Matching.MaxSuggestions),
		reconciliation.WithUnmatchedLimits(cfg.Unmatched.DefaultLimit, cfg.Unmatched.MaxLimit),
		reconciliation.WithLogger(logger),
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Organization-ID", "X-User"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, reconService)

	logger.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
