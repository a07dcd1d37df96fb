package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"storefront-service/internal/models"
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
	SiteURL     string

	// Sessions
	JWTSecret             string
	AdminSessionCookie    string
	CustomerSessionCookie string
	AdminSessionTTL       time.Duration
	CustomerSessionTTL    time.Duration

	// Visitor location
	CountryCookie  string
	DefaultCountry string

	// Mail
	SendGridAPIKey string
	MailFrom       string

	// Events
	NATSURL string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Import
	MaxImportFileMB int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "12"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	maxImportFileMB, _ := strconv.Atoi(getEnv("MAX_IMPORT_FILE_MB", "20"))

	return &Config{
		// Database - fetch password from GCP Secret Manager if enabled
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: secrets.GetDBPassword(),
		DBName:     getEnv("DB_NAME", "storefront_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		SiteURL:     strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),

		// Sessions
		JWTSecret:             getEnv("JWT_SECRET", "your-secret-key"),
		AdminSessionCookie:    getEnv("ADMIN_SESSION_COOKIE", "storefront_admin_session"),
		CustomerSessionCookie: getEnv("CUSTOMER_SESSION_COOKIE", "storefront_session"),
		AdminSessionTTL:       24 * time.Hour,
		CustomerSessionTTL:    30 * 24 * time.Hour,

		// Visitor location
		CountryCookie:  getEnv("COUNTRY_COOKIE", "storefront_country"),
		DefaultCountry: getEnv("DEFAULT_COUNTRY", "US"),

		// Mail
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@example.com"),

		// Events
		NATSURL: getEnv("NATS_URL", ""),

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,

		// Import
		MaxImportFileMB: maxImportFileMB,
	}
}

// IsProduction reports whether cookies must be marked Secure
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.IsProduction() {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.SetupJoinTable(&models.Product{}, "Categories", &models.ProductCategory{}); err != nil {
		return nil, fmt.Errorf("failed to set up product_categories join table: %w", err)
	}

	// Adds missing tables and columns; never drops anything
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.ProductCategory{},
		&models.ProductShipping{},
		&models.User{},
		&models.Favorite{},
		&models.SiteSetting{},
	); err != nil {
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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
