package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret is only accepted when ENV is development.
const devJWTSecret = "nexleads-development-secret-change-me"

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// SMTP Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPDisabled bool // log messages instead of sending (development)

	// FrontendURL is the single-page app origin: CORS, email links and
	// checkout redirects.
	FrontendURL string

	// APIBaseURL is this server's public URL, used in tracking pixels.
	APIBaseURL string

	// MailDomain is the domain of generated per-user addresses.
	MailDomain string

	// Storage Configuration
	StorageProvider string // "local" or "s3"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage
	LocalStorageURL  string // Base URL for accessing local files

	// S3-compatible storage (production; R2 works via S3Endpoint)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3PublicURL       string // Optional custom domain URL

	// Worker Configuration
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// Outreach sends
	SendConcurrency int

	// Lead source Configuration
	LeadSource               string // "mock" or "http"
	LeadSourceURL            string // endpoint template with {platform}
	LeadSourceAPIKey         string
	LeadSourceMaxRetries     int
	LeadSourceRetryBaseDelay time.Duration
	LeadSourceRequestTimeout time.Duration

	// RedisURL enables the shared rate limiter. Empty keeps limits in memory.
	RedisURL string

	// Admin access control
	AdminEmails []string // List of email addresses with admin access

	// Stripe Billing Configuration
	// In development, billing handlers answer 501 if these are empty.
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	// Stripe Price IDs for the paid plans
	StripeProPriceID      string
	StripePlatinumPriceID string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		// SMTP defaults for Mailhog (development)
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@nexleads.io"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "NexLeads"),
		SMTPDisabled: getEnvBool("SMTP_DISABLED", false),

		FrontendURL: strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		APIBaseURL:  strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		MailDomain:  getEnv("MAIL_DOMAIN", "nexleads.io"),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3PublicURL:       getEnv("S3_PUBLIC_URL", ""),

		// Worker defaults
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   getEnvDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),

		SendConcurrency: getEnvInt("SEND_CONCURRENCY", 5),

		// Lead source defaults
		LeadSource:               getEnv("LEAD_SOURCE", "mock"),
		LeadSourceURL:            getEnv("LEAD_SOURCE_URL", ""),
		LeadSourceAPIKey:         getEnv("LEAD_SOURCE_API_KEY", ""),
		LeadSourceMaxRetries:     getEnvInt("LEAD_SOURCE_MAX_RETRIES", 3),
		LeadSourceRetryBaseDelay: getEnvDuration("LEAD_SOURCE_RETRY_BASE_DELAY", 500*time.Millisecond),
		LeadSourceRequestTimeout: getEnvDuration("LEAD_SOURCE_REQUEST_TIMEOUT", 15*time.Second),

		RedisURL: getEnv("REDIS_URL", ""),

		// Stripe billing (optional)
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeProPriceID:      getEnv("STRIPE_PRO_PRICE_ID", ""),
		StripePlatinumPriceID: getEnv("STRIPE_PLATINUM_PRICE_ID", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Parse admin emails from comma-separated environment variable
	for _, email := range strings.Split(getEnv("ADMIN_EMAILS", ""), ",") {
		trimmed := strings.TrimSpace(strings.ToLower(email))
		if trimmed != "" {
			cfg.AdminEmails = append(cfg.AdminEmails, trimmed)
		}
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = devJWTSecret
	}

	// Validate storage configuration
	switch cfg.StorageProvider {
	case "local":
	case "s3":
		if cfg.S3AccessKeyID == "" {
			return nil, fmt.Errorf("S3_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 's3'")
		}
		if cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 's3'")
		}
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_PROVIDER is 's3'")
		}
	default:
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 's3', got: %s", cfg.StorageProvider)
	}

	// Validate lead source configuration
	switch cfg.LeadSource {
	case "mock":
	case "http":
		if !strings.Contains(cfg.LeadSourceURL, "{platform}") {
			return nil, fmt.Errorf("LEAD_SOURCE_URL must contain {platform} when LEAD_SOURCE is 'http'")
		}
	default:
		return nil, fmt.Errorf("LEAD_SOURCE must be either 'mock' or 'http', got: %s", cfg.LeadSource)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// BillingEnabled reports whether Stripe is configured.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookSecret != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
