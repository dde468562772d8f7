package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"uploade/internal/config"
	"uploade/internal/database"
	"uploade/internal/handlers"
	"uploade/internal/jobs"
	"uploade/internal/logging"
	"uploade/internal/middleware"
	"uploade/internal/schema"
	"uploade/internal/services"
	"uploade/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Uploade Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Data: %s)", cfg.Port, cfg.DataDir)

	// Moderation and settlement audit log (optional)
	var audit *database.AuditLog
	if cfg.AuditDBPath != "" {
		var err error
		audit, err = database.New(cfg.AuditDBPath)
		if err != nil {
			log.Fatalf("❌ Failed to open audit database: %v", err)
		}
		log.Printf("✅ Audit database ready at %s", cfg.AuditDBPath)
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("❌ Failed to prepare data directory: %v", err)
	}

	sch, err := schema.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load submission vocabulary: %v", err)
	}

	// Restart recovery: rebuild the index from the persisted snapshot.
	snap, err := store.LoadSnapshot()
	if err != nil {
		log.Fatalf("❌ Failed to load index snapshot: %v", err)
	}
	index := services.NewIndexService()
	for i := range snap.Entries {
		index.Add(&snap.Entries[i])
	}

	agents, err := store.LoadAgents()
	if err != nil {
		log.Fatalf("❌ Failed to load agent registry: %v", err)
	}
	identities := services.NewIdentityService(agents)

	rewardsDoc, err := store.LoadRewards()
	if err != nil {
		log.Fatalf("❌ Failed to load rewards ledger: %v", err)
	}

	log.Printf("📚 Loaded %d experiences from %d agents", index.Len(), identities.Count())

	limiter := services.NewSubmissionLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)

	moderation := services.NewModerationService(cfg.ReviewerConfigPath, cfg.ReviewerTimeout, cfg.ReviewerRPS, audit)
	if err := moderation.WatchConfig(); err != nil {
		log.Printf("⚠️  Reviewer config watcher unavailable: %v", err)
	}

	experiences := services.NewExperienceService(index, identities, limiter, moderation, store, sch, cfg.MaxEntries, cfg.MaxStorageBytes)
	rewards := services.NewRewardsService(rewardsDoc, store, identities, index, cfg.RewardPerEntry, cfg.MinContributions)

	// Redis stats cache (optional)
	var redis *services.RedisService
	if cfg.RedisURL != "" {
		redis, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, stats served uncached: %v", err)
			redis = nil
		}
	}
	stats := services.NewStatsService(index, redis)

	var settler services.Settler
	if cfg.SettlementURL != "" {
		settler = services.NewHTTPSettler(cfg.SettlementURL, 30*time.Second)
		log.Printf("✅ Settlement endpoint configured: %s", cfg.SettlementURL)
	} else {
		log.Println("⚠️  No settlement endpoint configured; claims will queue")
	}
	settlement := services.NewSettlementService(rewards, settler, audit)

	// Background jobs
	runner, err := jobs.NewRunner()
	if err != nil {
		log.Fatalf("❌ Failed to create job runner: %v", err)
	}
	if err := runner.AddInterval("settlement-drain", cfg.SettlementInterval, settlement.Drain); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := runner.AddInterval("snapshot-flush", cfg.SnapshotInterval, func(ctx context.Context) {
		if err := experiences.Flush(); err != nil {
			log.Printf("⚠️  Snapshot flush failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("❌ %v", err)
	}
	runner.Start()

	app := fiber.New(fiber.Config{
		AppName:   "Uploade",
		BodyLimit: cfg.MaxRequestBytes,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("uploade")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	rateLimitConfig := middleware.LoadRateLimitConfig()
	app.Use("/experiences", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	app.Use("/rewards", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	publicRead := middleware.PublicReadRateLimiter(rateLimitConfig)

	experienceHandler := handlers.NewExperienceHandler(experiences, int(cfg.RateLimitWindow.Seconds()))
	rewardsHandler := handlers.NewRewardsHandler(rewards)
	schemaHandler := handlers.NewSchemaHandler(sch, cfg.RateLimitMax)
	statsHandler := handlers.NewStatsHandler(stats)
	healthHandler := handlers.NewHealthHandler(index)

	app.Post("/experiences", experienceHandler.Create)
	app.Get("/experiences", experienceHandler.List)
	app.Get("/experiences/:id", experienceHandler.Get)
	app.Get("/warnings/:category", publicRead, experienceHandler.Warnings)
	app.Get("/tips/:category", publicRead, experienceHandler.Tips)
	app.Get("/solutions/:category", publicRead, experienceHandler.Solutions)
	app.Get("/schema", schemaHandler.Handle)
	app.Get("/stats", publicRead, statsHandler.Handle)
	app.Get("/health", healthHandler.Handle)
	app.Post("/rewards/wallet", rewardsHandler.SetWallet)
	app.Post("/rewards/claim", rewardsHandler.Claim)
	app.Get("/rewards/balance", rewardsHandler.Balance)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := runner.Stop(); err != nil {
			log.Printf("⚠️ Error stopping background jobs: %v", err)
		}
		if err := moderation.Close(); err != nil {
			log.Printf("⚠️ Error stopping moderation watcher: %v", err)
		}
		if err := experiences.Flush(); err != nil {
			log.Printf("⚠️ Final snapshot flush failed: %v", err)
		}
		if redis != nil {
			if err := redis.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}
		if err := audit.Close(); err != nil {
			log.Printf("⚠️ Error closing audit database: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
