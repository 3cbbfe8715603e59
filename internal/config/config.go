package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config holds all configuration for the catalog service.
type Config struct {
	DB        DBConfig
	Redis     RedisConfig
	OMDB      OMDBConfig
	Translate TranslateConfig
	Cache     CacheConfig
	Auth      AuthConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	SentryDSN string
	Port      string
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SSLRootCert string
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OMDBConfig holds OMDb API configuration.
type OMDBConfig struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	DailyQuota     int
	RetryAttempts  uint
	SearchCacheTTL time.Duration
}

// TranslateConfig holds settings for display-language translation.
type TranslateConfig struct {
	Enabled    bool
	BaseURL    string
	TargetLang string
}

// CacheConfig holds catalog cache settings.
type CacheConfig struct {
	TTL time.Duration
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

// RateLimitConfig bounds API requests per caller and window.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Format string
	Level  string
	File   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	burst, _ := strconv.Atoi(getEnv("OMDB_BURST", "5"))
	quota, _ := strconv.Atoi(getEnv("OMDB_DAILY_QUOTA", "1000"))
	retries, _ := strconv.Atoi(getEnv("OMDB_RETRY_ATTEMPTS", "3"))
	rps, err := strconv.ParseFloat(getEnv("OMDB_REQUESTS_PER_SEC", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OMDB_REQUESTS_PER_SEC: %w", err)
	}
	translateEnabled, err := strconv.ParseBool(getEnv("TRANSLATE_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSLATE_ENABLED: %w", err)
	}

	omdbTimeout, err := getDuration("OMDB_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	searchTTL, err := getDuration("OMDB_SEARCH_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getDuration("CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	rateLimitMax, _ := strconv.Atoi(getEnv("RATE_LIMIT_MAX", "100"))
	rateLimitWindow, err := getDuration("RATE_LIMIT_WINDOW", "1m")
	if err != nil {
		return nil, err
	}

	targetLang := getEnv("TRANSLATE_TARGET_LANG", "fr")
	if _, err := language.Parse(targetLang); err != nil {
		return nil, fmt.Errorf("invalid TRANSLATE_TARGET_LANG %q: %w", targetLang, err)
	}

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        dbPort,
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "movie_catalog"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		OMDB: OMDBConfig{
			APIKey:         getEnv("OMDB_API_KEY", ""),
			BaseURL:        getEnv("OMDB_BASE_URL", "http://www.omdbapi.com/"),
			Timeout:        omdbTimeout,
			RequestsPerSec: rps,
			Burst:          burst,
			DailyQuota:     quota,
			RetryAttempts:  uint(max(retries, 1)),
			SearchCacheTTL: searchTTL,
		},
		Translate: TranslateConfig{
			Enabled:    translateEnabled,
			BaseURL:    getEnv("TRANSLATE_BASE_URL", "https://translate.googleapis.com"),
			TargetLang: targetLang,
		},
		Cache: CacheConfig{
			TTL: cacheTTL,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "json"),
			Level:  getEnv("LOG_LEVEL", "info"),
			File:   getEnv("LOG_FILE", ""),
		},
		RateLimit: RateLimitConfig{
			Max:    rateLimitMax,
			Window: rateLimitWindow,
		},
		SentryDSN: getEnv("SENTRY_DSN", ""),
		Port:      getEnv("SERVER_PORT", "8081"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
