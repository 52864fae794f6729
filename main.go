package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"learnledger/database"
	"learnledger/handlers"
	"learnledger/ledger"
	"learnledger/middleware"
	"learnledger/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Validate critical environment variables
	validateEnvironment()

	// Initialize database
	database.InitDB()
	defer database.CloseDB()

	program := ledger.MustParseAddress(os.Getenv("ACHIEVEMENT_PROGRAM_ID"))
	xpMint := ledger.MustParseAddress(os.Getenv("XP_MINT"))

	backend, err := ledger.ParseSigningKey(os.Getenv("BACKEND_SIGNER_KEY"))
	if err != nil {
		log.Fatal("FATAL: BACKEND_SIGNER_KEY is not a valid signing key: ", err)
	}

	// Ledger plumbing
	client := ledger.NewClient(os.Getenv("RPC_ENDPOINT"), program)
	resolver := ledger.NewMintResolver(client)

	// Services
	store := services.NewGormMirrorStore(database.GetDB())
	sync := services.NewSyncService(store)
	listing := services.NewListingService(client, store, sync)
	mint := services.NewMintService(client, resolver, store, sync, program, xpMint, backend)

	leaderboard := services.NewLeaderboardService(client, resolver, xpMint)
	leaderboard.Directory = store
	leaderboard.Aliases = parseAliases(os.Getenv("LEADERBOARD_ALIASES"))
	leaderboard.StaticHolders = parseStaticHolders(os.Getenv("LEADERBOARD_STATIC_HOLDERS"))

	handlers.InitAchievementHandlers(listing, mint)
	handlers.InitLeaderboardHandlers(leaderboard)
	handlers.InitStatsHandlers(store)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// API Routes
	api := app.Group("/api")

	// Achievement routes (require authentication)
	achievementGroup := api.Group("/achievements")
	achievementGroup.Use(middleware.AuthMiddleware)
	achievementGroup.Get("/", handlers.GetAchievements)
	achievementGroup.Post("/:id/prepare", handlers.PrepareMint)
	achievementGroup.Post("/:id/confirm", handlers.ConfirmMint)

	// Leaderboard routes (public)
	leaderboardGroup := api.Group("/leaderboard")
	leaderboardGroup.Get("/", handlers.GetLeaderboard)
	leaderboardGroup.Get("/rank/:wallet", handlers.GetWalletRank)

	// Stats routes (require authentication)
	api.Get("/stats", middleware.AuthMiddleware, handlers.GetStats)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		code := 200
		if sqlDB, dbErr := database.GetDB().DB(); dbErr != nil || sqlDB.Ping() != nil {
			status = "degraded"
			code = 503
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("⛓  Ledger RPC: %s", os.Getenv("RPC_ENDPOINT"))
	log.Printf("🏅 Credential program: %s", program)
	log.Printf("✨ XP mint: %s", xpMint)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	for _, key := range []string{"RPC_ENDPOINT", "ACHIEVEMENT_PROGRAM_ID", "XP_MINT", "BACKEND_SIGNER_KEY"} {
		if os.Getenv(key) == "" {
			log.Fatalf("FATAL: %s environment variable must be set", key)
		}
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

// parseAliases reads "wallet=Display Name,wallet2=Other" pairs.
func parseAliases(raw string) map[string]string {
	aliases := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		wallet, name, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || wallet == "" || name == "" {
			continue
		}
		aliases[wallet] = name
	}
	return aliases
}

// parseStaticHolders reads "wallet:xp,wallet2:xp" override pairs, used
// to pin known balances when a holder scan is unavailable.
func parseStaticHolders(raw string) []services.StaticHolder {
	var holders []services.StaticHolder
	for _, pair := range strings.Split(raw, ",") {
		wallet, amount, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || wallet == "" {
			continue
		}
		xp, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			log.Printf("Warning: skipping static holder %q: %v", pair, err)
			continue
		}
		holders = append(holders, services.StaticHolder{Wallet: wallet, XP: xp})
	}
	return holders
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
