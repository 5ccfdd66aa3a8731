package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends understood by the server.
const (
	BackendMemory  = "memory"
	BackendMongoDB = "mongodb"
	BackendRedis   = "redis"
	BackendSQLite  = "sqlite"
)

// Config holds the server configuration read from the environment.
type Config struct {
	Port     string `env:"PORT"      envDefault:"8080"`
	GinMode  string `env:"GIN_MODE"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB"  envDefault:"quickbasket"`
	// MongoRecordTTL expires stored records not written for this long.
	// Zero keeps them forever.
	MongoRecordTTL time.Duration `env:"MONGO_RECORD_TTL" envDefault:"720h"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"quickbasket.db"`

	// StorageQuotaBytes caps a single stored value, like a browser's
	// local storage budget. Zero disables the cap.
	StorageQuotaBytes int `env:"STORAGE_QUOTA_BYTES" envDefault:"5242880"`

	SaveDebounce        time.Duration `env:"SAVE_DEBOUNCE"         envDefault:"300ms"`
	StoreTimeout        time.Duration `env:"STORE_TIMEOUT"         envDefault:"5s"`
	RecommendationDelay time.Duration `env:"RECOMMENDATION_DELAY"  envDefault:"500ms"`
	RecentlyViewedLimit int           `env:"RECENTLY_VIEWED_LIMIT" envDefault:"8"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.GinMode {
	case "", "debug", "release", "test":
	default:
		return Config{}, fmt.Errorf("unknown GIN_MODE %q", cfg.GinMode)
	}
	switch cfg.StoreBackend {
	case BackendMemory, BackendMongoDB, BackendRedis, BackendSQLite:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.MongoRecordTTL < 0 {
		return Config{}, fmt.Errorf("MONGO_RECORD_TTL must not be negative, got %s", cfg.MongoRecordTTL)
	}
	if cfg.SaveDebounce <= 0 {
		return Config{}, fmt.Errorf("SAVE_DEBOUNCE must be positive, got %s", cfg.SaveDebounce)
	}
	return cfg, nil
}

// GetEnv returns the value of key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
