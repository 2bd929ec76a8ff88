package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration
type Settings struct {
	Port     string
	Env      string
	LogLevel string

	Database  DatabaseSettings
	CORS      CORSSettings
	RateLimit RateLimitSettings
	Twilio    TwilioSettings
	Storage   StorageSettings

	InstagramGraphURL string
	SchedulerEnabled  bool
}

// DatabaseSettings holds the postgres connection and pool settings
type DatabaseSettings struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CORSSettings struct {
	AllowedOrigins []string
}

type RateLimitSettings struct {
	PerMinute int
	Burst     int
}

// TwilioSettings holds SMS/WhatsApp credentials
type TwilioSettings struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
}

// Configured reports whether enough credentials are present to send messages
func (t TwilioSettings) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.PhoneNumber != ""
}

// StorageSettings holds object storage settings for media set photos
type StorageSettings struct {
	Driver    string // s3, minio or none
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PublicURL string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Settings, error) {
	s := &Settings{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseSettings{
			URL:             getEnv("DB_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		CORS: CORSSettings{
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		RateLimit: RateLimitSettings{
			PerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 60),
			Burst:     getIntEnv("RATE_LIMIT_BURST", 20),
		},
		Twilio: TwilioSettings{
			AccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
			PhoneNumber:    getEnv("TWILIO_PHONE_NUMBER", ""),
			WhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		},
		Storage: StorageSettings{
			Driver:    strings.ToLower(getEnv("STORAGE_DRIVER", "none")),
			Bucket:    getEnv("STORAGE_BUCKET", "salonsync-media"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			UseSSL:    getBoolEnv("STORAGE_USE_SSL", true),
			PublicURL: getEnv("STORAGE_PUBLIC_URL", ""),
		},
		InstagramGraphURL: getEnv("INSTAGRAM_GRAPH_URL", "https://graph.facebook.com/v19.0"),
		SchedulerEnabled:  getBoolEnv("SCHEDULER_ENABLED", true),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks required settings
func (s *Settings) Validate() error {
	var errs []error
	if s.Database.URL == "" {
		errs = append(errs, errors.New("DB_URL is required"))
	}
	if os.Getenv("JWT_SECRET") == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch s.Storage.Driver {
	case "s3", "minio", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", s.Storage.Driver))
	}
	if s.Storage.Driver == "minio" && s.Storage.Endpoint == "" {
		errs = append(errs, errors.New("STORAGE_ENDPOINT is required for minio"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the app runs in production mode
func (s *Settings) IsProduction() bool {
	return s.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getSliceEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
