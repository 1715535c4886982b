package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"rilie/internal/config"
	"rilie/internal/curiosity"
	"rilie/internal/database"
	"rilie/internal/handlers"
	"rilie/internal/jobs"
	"rilie/internal/logging"
	"rilie/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting RILIE Curiosity Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DB: %s)", cfg.Port, cfg.DatabasePath)

	// Insight store (SQLite + FTS)
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Optional Redis publisher for kept-insight events
	var publisher *services.EventPublisher
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		publisher, err = services.NewEventPublisher(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (insight events disabled)", err)
			publisher = nil
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - insight event publishing disabled")
	}
	if publisher != nil {
		defer publisher.Close()
	}

	insightStore := services.NewInsightStore(db, publisher)

	// Optional research port (SearXNG)
	var research curiosity.ResearchPort
	if len(cfg.SearXNGURLs) > 0 {
		researchService, err := services.NewResearchService(cfg.SearXNGURLs)
		if err != nil {
			log.Printf("⚠️ Research disabled: %v", err)
		} else {
			research = researchService
		}
	} else {
		log.Println("⚠️ SEARXNG_URL not set - research disabled, all tangents will dead-end")
	}

	// Optional synthesis port (OpenAI-compatible)
	var synthesis curiosity.SynthesisPort
	if cfg.SynthesisBaseURL != "" && cfg.SynthesisModel != "" {
		synthesis = services.NewSynthesisService(cfg.SynthesisBaseURL, cfg.SynthesisAPIKey, cfg.SynthesisModel)
		log.Printf("✅ Synthesis enabled (model: %s)", cfg.SynthesisModel)
	} else {
		log.Println("⚠️ SYNTHESIS_BASE_URL/SYNTHESIS_MODEL not set - raw research will be stored as insights")
	}

	// The curiosity engine itself
	engine := curiosity.NewEngine(insightStore, research, synthesis, curiosity.Config{
		MaxPerCycle:   cfg.MaxPerCycle,
		CycleInterval: cfg.CycleInterval,
		QueueCapacity: cfg.QueueCapacity,
	})

	metrics := services.InitMetrics(engine.QueueSize)
	log.Println("📊 Curiosity metrics registered")

	// Background jobs: daily retention cleanup of unkept insights
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("insight_retention", jobs.NewInsightRetentionJob(insightStore, cfg.RetentionDays))
	jobScheduler.Start()

	app := fiber.New(fiber.Config{
		AppName:      "RILIE Curiosity v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 300 * time.Second, // a manual drain can wait on several sequential research calls
		IdleTimeout:  120 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("rilie")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// The conversation layer can fire tangents on every turn; cap it.
	app.Use("/v1/curiosity/queue", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
	}))

	// Handlers
	curiosityHandler := handlers.NewCuriosityHandler(engine, metrics)
	healthHandler := handlers.NewHealthHandler(engine, jobScheduler)

	// Routes
	app.Get("/health", healthHandler.Handle)
	app.Get("/v1/curiosity/status", curiosityHandler.Status)
	app.Post("/v1/curiosity/queue", curiosityHandler.QueueTangent)
	app.Post("/v1/curiosity/drain", curiosityHandler.Drain)
	app.Get("/v1/curiosity/search", curiosityHandler.Search)
	app.Post("/v1/curiosity/background/start", curiosityHandler.StartBackground)
	app.Post("/v1/curiosity/background/stop", curiosityHandler.StopBackground)

	// She thinks when nobody's talking.
	engine.StartBackground()

	log.Printf("🧠 Curiosity engine running (max_per_cycle=%d, interval=%s)", cfg.MaxPerCycle, cfg.CycleInterval)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		engine.StopBackground()
		jobScheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
