package server

import (
	"context"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nratax/nratax-api/internal/handlers"
	"github.com/nratax/nratax-api/internal/logger"
	"github.com/nratax/nratax-api/internal/middleware"
	"github.com/nratax/nratax-api/internal/rules"
	"github.com/nratax/nratax-api/internal/services"
	"github.com/nratax/nratax-api/internal/store"
)

// Handler definitions
var (
	computationHandler *handlers.ComputationHandler
	rulesetHandler     *handlers.RulesetHandler
	healthHandler      *handlers.HealthHandler

	// Database-backed store, kept for shutdown
	pgStore *store.PostgresStore
)

// Rate limits. Computations walk every bracket and clause, so writes get a
// tighter budget than reads.
var (
	readRateLimiter    = middleware.NewRateLimiter(100, 200)
	computeRateLimiter = middleware.NewRateLimiter(10, 20)
)

// InitializeHandlers connects the store and wires the handler graph.
func InitializeHandlers(ctx context.Context) error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL environment variable is required")
	}

	var err error
	pgStore, err = store.Connect(ctx, dbURL)
	if err != nil {
		return err
	}

	rulesets, err := rules.DefaultRepository()
	if err != nil {
		return err
	}

	computeService := services.NewComputeService(rulesets, pgStore, logger.Log)
	commonServices := handlers.NewCommonServices(computeService)

	computationHandler = handlers.NewComputationHandler(commonServices)
	rulesetHandler = handlers.NewRulesetHandler(commonServices)
	healthHandler = handlers.NewHealthHandler()

	return nil
}

// Shutdown releases server-held resources.
func Shutdown() {
	if pgStore != nil {
		pgStore.Close()
	}
}

// InitializeRoutes registers middleware and the API surface on the router.
func InitializeRoutes(router *gin.Engine) {
	router.Use(configureCORS())

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKeyAuth(os.Getenv("NRATAX_API_KEY")))
	{
		computations := v1.Group("/computations")
		{
			computations.POST("", computeRateLimiter.Middleware(), computationHandler.Compute)
			computations.GET("/:computation_id", readRateLimiter.Middleware(), computationHandler.GetComputation)
		}

		taxpayers := v1.Group("/taxpayers")
		taxpayers.Use(readRateLimiter.Middleware())
		{
			taxpayers.GET("/:taxpayer_id/computations", computationHandler.ListTaxpayerComputations)
		}

		rulesets := v1.Group("/rulesets")
		rulesets.Use(readRateLimiter.Middleware())
		{
			rulesets.GET("", rulesetHandler.ListRulesets)
			rulesets.GET("/:version", rulesetHandler.GetRuleset)
		}
	}
}

// configureCORS returns a configured CORS middleware
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-API-Key"}
	corsConfig.AllowCredentials = os.Getenv("CORS_ALLOW_CREDENTIALS") == "true"

	return cors.New(corsConfig)
}
