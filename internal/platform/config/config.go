package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	dErrors "esbilla/pkg/domain-errors"
)

// Config captures process-level settings for the CLI and the development
// backend. Tenant configuration comes from the backend, not from here.
type Config struct {
	Env               string
	LogLevel          string
	APIBase           string
	SiteID            string
	ConsentExpiryDays int
	LogQueueSize      int
	Mock              MockConfig
	Redis             RedisConfig
}

// MockConfig configures the development backend.
type MockConfig struct {
	Addr         string
	FixturesPath string
	Watch        bool
}

// RedisConfig configures the optional Redis sync store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads the given .env files, when present, into the environment and
// then builds the configuration from it. Missing files are not an error.
func Load(envFiles ...string) (Config, error) {
	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Config{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "load env files")
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from ESBILLA_* environment variables.
func FromEnv() (Config, error) {
	var err error
	cfg := Config{
		Env:      getenv("ESBILLA_ENV", "development"),
		LogLevel: getenv("ESBILLA_LOG_LEVEL", "info"),
		APIBase:  getenv("ESBILLA_API_BASE", "http://localhost:3001"),
		SiteID:   os.Getenv("ESBILLA_SITE_ID"),
		Mock: MockConfig{
			Addr:         getenv("ESBILLA_MOCK_ADDR", ":3001"),
			FixturesPath: getenv("ESBILLA_MOCK_FIXTURES", "fixtures/mockapi.yaml"),
			Watch:        os.Getenv("ESBILLA_MOCK_WATCH") != "false",
		},
		Redis: RedisConfig{
			URL: os.Getenv("ESBILLA_REDIS_URL"),
		},
	}

	if cfg.ConsentExpiryDays, err = getInt("ESBILLA_CONSENT_EXPIRY_DAYS", 365); err != nil {
		return Config{}, err
	}
	if cfg.LogQueueSize, err = getInt("ESBILLA_LOG_QUEUE_SIZE", 64); err != nil {
		return Config{}, err
	}
	if cfg.Redis.PoolSize, err = getInt("ESBILLA_REDIS_POOL_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.Redis.MinIdleConns, err = getInt("ESBILLA_REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DialTimeout, err = getDuration("ESBILLA_REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Redis.ReadTimeout, err = getDuration("ESBILLA_REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Redis.WriteTimeout, err = getDuration("ESBILLA_REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, key+" must be an integer")
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, key+" must be a duration")
	}
	return d, nil
}
