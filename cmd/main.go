package main

import (
	"context"
	"fmt"
	"os"

	"github.com/glowlab/glowlab-backend/internal/clients/redis"
	"github.com/glowlab/glowlab-backend/internal/db"
	"github.com/glowlab/glowlab-backend/internal/handlers"
	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/middleware"
	"github.com/glowlab/glowlab-backend/internal/observability"
	"github.com/glowlab/glowlab-backend/internal/refdata"
	"github.com/glowlab/glowlab-backend/internal/repos"
	"github.com/glowlab/glowlab-backend/internal/server"
	"github.com/glowlab/glowlab-backend/internal/services"
	"github.com/glowlab/glowlab-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "glowlab-backend",
		Environment: utils.GetEnv("DEPLOY_ENV", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if shutdownTracing != nil {
		defer shutdownTracing(ctx)
	}

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	conflictBatchSize := utils.GetEnvAsInt("CONFLICT_BATCH_SIZE", services.DefaultConflictBatchSize, log)
	refdataPath := utils.GetEnv("REFDATA_PATH", "", log)
	corsOrigins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	ingredientRepo := repos.NewIngredientRepo(thePG, log)
	conflictRuleRepo := repos.NewConflictRuleRepo(thePG, log)
	productRepo := repos.NewProductRepo(thePG, log)
	routineRepo := repos.NewRoutineRepo(thePG, log)
	historyRepo := repos.NewFormulationHistoryRepo(thePG, log)
	alertRepo := repos.NewReformulationAlertRepo(thePG, log)
	reviewRepo := repos.NewReviewRepo(thePG, log)

	// Reference tables
	refStore := refdata.NewStore(log)
	if refdataPath != "" {
		if err := refStore.LoadFile(refdataPath); err != nil {
			log.Error("Failed to load reference tables", "path", refdataPath, "error", err)
			os.Exit(1)
		}
		if err := refStore.Watch(ctx, refdataPath); err != nil {
			log.Warn("Reference table watch unavailable, edits need a restart", "error", err)
		}
	}

	// Optional rules cache
	rulesCache, err := redis.NewRulesCache(log)
	if err != nil {
		log.Warn("Rules cache unavailable, conflict lookups go straight to Postgres", "error", err)
		rulesCache = nil
	} else {
		defer rulesCache.Close()
	}

	// Services
	log.Info("Setting up Services from main...")
	layeringService := services.NewLayeringService(refStore, log)
	conflictService := services.NewConflictService(thePG, log, routineRepo, productRepo, conflictRuleRepo, rulesCache, conflictBatchSize)
	routineService := services.NewRoutineService(thePG, log, refStore, routineRepo, productRepo, conflictService, layeringService)
	formulationService := services.NewFormulationService(thePG, log, productRepo, ingredientRepo, historyRepo, alertRepo, routineRepo, reviewRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	healthcheckHandler := handlers.NewHealthcheckHandler()
	routineHandler := handlers.NewRoutineHandler(log, routineService)
	conflictHandler := handlers.NewConflictHandler(log, conflictService, routineService)
	layeringHandler := handlers.NewLayeringHandler(log, layeringService)
	formulationHandler := handlers.NewFormulationHandler(log, formulationService)
	alertHandler := handlers.NewAlertHandler(log, formulationService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, userRepo)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:     authMiddleware,
		HealthcheckHandler: healthcheckHandler,
		RoutineHandler:     routineHandler,
		ConflictHandler:    conflictHandler,
		LayeringHandler:    layeringHandler,
		FormulationHandler: formulationHandler,
		AlertHandler:       alertHandler,
		AllowedOrigins:     server.SplitOrigins(corsOrigins),
		TracingEnabled:     observability.Enabled(),
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
