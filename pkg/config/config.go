package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Refdata  RefdataConfig
	Stats    StatsConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig carries the request-identity settings. Tokens are issued by the
// upstream identity service; this API only verifies them. APIKeyHash is a
// bcrypt hash of the shared key machine clients present via X-API-Key.
type AuthConfig struct {
	JWTSecret  string
	Issuer     string
	APIKeyHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RefdataConfig tunes the reference-data read-through cache.
type RefdataConfig struct {
	CacheTTL time.Duration
}

// StatsConfig tunes caching of the class statistics view.
type StatsConfig struct {
	CacheTTL time.Duration
}

// ExportsConfig configures synchronous and queued class exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// defaults seed viper before the environment and any .env file are applied.
var defaults = map[string]interface{}{
	"ENV":        EnvDevelopment,
	"PORT":       8080,
	"API_PREFIX": "/api/v1",

	"DB_HOST":           "localhost",
	"DB_PORT":           5432,
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "classtrack",
	"DB_SSL_MODE":       "disable",
	"DB_MAX_OPEN_CONNS": 10,
	"DB_MAX_IDLE_CONNS": 5,

	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     6379,
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET":   "dev_secret",
	"JWT_ISSUER":   "classtrack",
	"API_KEY_HASH": "",

	"ALLOWED_ORIGINS": "",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",

	"REFDATA_CACHE_TTL": "1h",
	"STATS_CACHE_TTL":   "5m",

	"ENABLE_EXPORTS":             false,
	"EXPORTS_STORAGE_DIR":        "./exports",
	"EXPORTS_SIGNED_URL_SECRET":  "dev_exports_secret",
	"EXPORTS_SIGNED_URL_TTL":     "24h",
	"EXPORTS_WORKER_CONCURRENCY": 1,
	"EXPORTS_WORKER_RETRIES":     3,
}

// Load resolves configuration from the environment, with an optional .env
// file for local development. Missing keys fall back to defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v, err := newViper()
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:       v.GetString("ENV"),
		Port:      v.GetInt("PORT"),
		APIPrefix: v.GetString("API_PREFIX"),

		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			Issuer:     v.GetString("JWT_ISSUER"),
			APIKeyHash: v.GetString("API_KEY_HASH"),
		},
		CORS: CORSConfig{AllowedOrigins: csvValues(v.GetString("ALLOWED_ORIGINS"))},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Refdata: RefdataConfig{
			CacheTTL: durationOr(v.GetString("REFDATA_CACHE_TTL"), time.Hour),
		},
		Stats: StatsConfig{
			CacheTTL: durationOr(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
		},
		Exports: ExportsConfig{
			Enabled:           v.GetBool("ENABLE_EXPORTS"),
			StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
			SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
			SignedURLTTL:      durationOr(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
			WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
			WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
		},
	}, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return v, nil
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func csvValues(raw string) []string {
	if raw == "" {
		return nil
	}

	values := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}
