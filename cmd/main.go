package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"stores-service/internal/config"
	"stores-service/internal/events"
	"stores-service/internal/geocoding"
	"stores-service/internal/handlers"
	"stores-service/internal/importer"
	"stores-service/internal/middleware"
	"stores-service/internal/repository"
	"stores-service/internal/session"
)

// @title Stores Management API
// @version 1.0.0
// @description Store location management and bulk ingestion service with multi-tenant support
// @termsOfService http://swagger.io/terms/

// @contact.name Stores API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8093
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repository
	storesRepo := repository.NewStoresRepository(db, redisClient, logger)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	// Initialize the import pipeline
	parser := importer.NewParser(cfg.MaxRowsPerUpload, cfg.SupportedFileTypes)
	sessions := session.NewStore(cfg.UploadSessionTTL, nil)
	geocoder := geocoding.NewNominatimClient(cfg.GeocoderURL)
	batcher := geocoding.NewBatcher(geocoder, geocoding.BatcherConfig{
		BatchSize:   cfg.GeocodingBatchSize,
		BatchDelay:  cfg.GeocodingDelay,
		Concurrency: cfg.GeocodingConcurrency,
		MaxRetries:  cfg.GeocodingMaxRetries,
	}, logger)
	orchestrator := importer.NewOrchestrator(parser, sessions, storesRepo, batcher, importer.OrchestratorConfig{
		DefaultCountry: cfg.DefaultCountry,
	}, logger)
	log.Println("✓ Import pipeline initialized")

	// Initialize handlers (events publisher may be nil if NATS not configured)
	storesHandler := handlers.NewStoresHandler(storesRepo, eventsPublisher, cfg.DefaultPageSize, cfg.MaxPageSize)
	importHandler := handlers.NewImportHandler(orchestrator, eventsPublisher, cfg.MaxFileSizeMB)
	healthHandler := handlers.NewHealthHandler(db)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)

	// Protected API routes
	api := router.Group("/api/v1")
	api.Use(middleware.DevelopmentAuthMiddleware())
	api.Use(middleware.TenantMiddleware())

	// API routes
	v1 := api.Group("")
	{
		stores := v1.Group("/stores")
		{
			stores.GET("", storesHandler.GetStores)
			stores.GET("/stats", storesHandler.GetStats)
			stores.GET("/:id", storesHandler.GetStore)
			stores.POST("", storesHandler.CreateStore)
			stores.PUT("/:id", storesHandler.UpdateStore)
			stores.DELETE("/:id", storesHandler.DeleteStore)

			// Bulk import
			stores.GET("/import/template", importHandler.GetImportTemplate)
			stores.POST("/import/upload", importHandler.UploadStores)
			stores.POST("/import/ingest", importHandler.IngestStores)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Stores service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down stores-service...")

	log.Println("Stores service stopped")
}
