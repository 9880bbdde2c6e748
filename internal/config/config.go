package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int
	AppEnv     string

	StoreDriver   string // "sqlite" or "mongo"
	DatabasePath  string
	MongoURI      string
	MongoDatabase string

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins []string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MediaPublicURL string
	MaxUploadBytes int64
	UploadRetries  int

	RedisAddr       string
	ProfileCacheTTL time.Duration

	LogLevel  string
	LogPretty bool
	LogFile   string

	ZipkinAddress string

	EventRetention  time.Duration
	JanitorSchedule string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "5001"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "mongo" {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}

	maxUploadMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "50"))
	if err != nil || maxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}

	retries, err := strconv.Atoi(getEnv("UPLOAD_RETRIES", "2"))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("invalid UPLOAD_RETRIES %q", os.Getenv("UPLOAD_RETRIES"))
	}

	cacheTTL, err := time.ParseDuration(getEnv("PROFILE_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_CACHE_TTL: %w", err)
	}

	retention, err := time.ParseDuration(getEnv("EVENT_RETENTION", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_RETENTION: %w", err)
	}

	endpoint := getEnv("MINIO_ENDPOINT", "127.0.0.1:9000")
	useSSL := getEnv("MINIO_USE_SSL", "false") == "true"
	publicURL := os.Getenv("MEDIA_PUBLIC_URL")
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint
	}

	// The original deployment reads either name.
	mongoURI := getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017"))

	cfg := &Config{
		ServerPort:      port,
		AppEnv:          getEnv("APP_ENV", "development"),
		StoreDriver:     driver,
		DatabasePath:    getEnv("DATABASE_PATH", "./opensocial.db"),
		MongoURI:        mongoURI,
		MongoDatabase:   getEnv("MONGO_DATABASE", "opensocial"),
		JWTSecret:       secret,
		TokenTTL:        tokenTTL,
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		MinIOEndpoint:   endpoint,
		MinIOAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:     getEnv("MINIO_BUCKET", "opensocial-media"),
		MinIOUseSSL:     useSSL,
		MediaPublicURL:  strings.TrimRight(publicURL, "/"),
		MaxUploadBytes:  int64(maxUploadMB) << 20,
		UploadRetries:   retries,
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ProfileCacheTTL: cacheTTL,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         os.Getenv("LOG_FILE"),
		ZipkinAddress:   os.Getenv("ZIPKIN_ADDRESS"),
		EventRetention:  retention,
		JanitorSchedule: getEnv("JANITOR_SCHEDULE", "@daily"),
	}
	// Console output unless running in production, when LOG_PRETTY is unset.
	pretty := "1"
	if cfg.IsProduction() {
		pretty = "0"
	}
	cfg.LogPretty = getEnv("LOG_PRETTY", pretty) == "1"
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
