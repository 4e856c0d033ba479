package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/glowlab/glowlab-backend/internal/handlers"
	"github.com/glowlab/glowlab-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware     *middleware.AuthMiddleware
	HealthcheckHandler *handlers.HealthcheckHandler
	RoutineHandler     *handlers.RoutineHandler
	ConflictHandler    *handlers.ConflictHandler
	LayeringHandler    *handlers.LayeringHandler
	FormulationHandler *handlers.FormulationHandler
	AlertHandler       *handlers.AlertHandler

	AllowedOrigins []string
	TracingEnabled bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("glowlab-backend"))
	}

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Routines
	api.POST("/routines", cfg.RoutineHandler.CreateRoutine)
	api.POST("/routines/generate", cfg.RoutineHandler.GenerateRoutine)
	api.GET("/routines/:id", cfg.RoutineHandler.GetRoutine)
	api.POST("/routines/:id/products", cfg.RoutineHandler.AddProduct)
	api.DELETE("/routines/:id/products/:productId", cfg.RoutineHandler.RemoveProduct)
	api.PUT("/routines/:id/products/order", cfg.RoutineHandler.ReorderProducts)
	// Conflicts
	api.GET("/routines/:id/conflicts", cfg.ConflictHandler.GetRoutineConflicts)
	api.POST("/routines/:id/conflicts/check", cfg.ConflictHandler.CheckCandidateProduct)
	// Layering
	api.GET("/layering/steps", cfg.LayeringHandler.GetCanonicalSteps)
	// Formulation history
	api.POST("/products/:id/reformulations", cfg.FormulationHandler.ReportReformulation)
	api.GET("/products/:id/reformulations", cfg.FormulationHandler.GetHistory)
	// Alerts
	api.GET("/alerts", cfg.AlertHandler.ListAlerts)
	api.POST("/alerts/:id/dismiss", cfg.AlertHandler.DismissAlert)

	return router
}

// SplitOrigins parses a comma separated CORS_ALLOWED_ORIGINS value.
func SplitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
