package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stores-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Messaging
	NATSURL string

	// Geocoding
	GeocoderURL          string
	GeocodingBatchSize   int
	GeocodingDelay       time.Duration
	GeocodingConcurrency int
	GeocodingMaxRetries  int

	// Import limits
	MaxFileSizeMB      int
	MaxRowsPerUpload   int
	SupportedFileTypes []string
	UploadSessionTTL   time.Duration
	DefaultCountry     string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	maxFileSizeMB, _ := strconv.Atoi(getEnv("MAX_FILE_SIZE_MB", "10"))
	maxRows, _ := strconv.Atoi(getEnv("MAX_ROWS_PER_UPLOAD", "10000"))
	geoBatchSize, _ := strconv.Atoi(getEnv("GEOCODING_BATCH_SIZE", "10"))
	geoDelayMs, _ := strconv.Atoi(getEnv("GEOCODING_DELAY_MS", "1000"))
	geoConcurrency, _ := strconv.Atoi(getEnv("GEOCODING_CONCURRENCY", "4"))
	geoMaxRetries, _ := strconv.Atoi(getEnv("GEOCODING_MAX_RETRIES", "3"))
	sessionTTLMinutes, _ := strconv.Atoi(getEnv("UPLOAD_SESSION_TTL_MINUTES", "60"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "stores_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("PORT", "8093"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Messaging - empty disables event publishing
		NATSURL: getEnv("NATS_URL", ""),

		// Geocoding
		GeocoderURL:          getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocodingBatchSize:   geoBatchSize,
		GeocodingDelay:       time.Duration(geoDelayMs) * time.Millisecond,
		GeocodingConcurrency: geoConcurrency,
		GeocodingMaxRetries:  geoMaxRetries,

		// Import limits
		MaxFileSizeMB:      maxFileSizeMB,
		MaxRowsPerUpload:   maxRows,
		SupportedFileTypes: splitList(getEnv("SUPPORTED_FILE_TYPES", "csv,xlsx")),
		UploadSessionTTL:   time.Duration(sessionTTLMinutes) * time.Minute,
		DefaultCountry:     getEnv("DEFAULT_COUNTRY", ""),

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate models to keep schema up to date
	// This will add missing columns but won't delete existing columns
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Store{},
	); err != nil {
		// Ignore errors about dropping non-existent constraints
		// This can happen when schema was created without old constraints
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
