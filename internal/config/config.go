package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultJWTSecret = "dev-secret-change-me"

// Session storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config describes all runtime settings for the server.
//
// Load once in main, validate, pass down explicitly.
type Config struct {
	Env string // dev|stage|prod

	Log struct {
		Format string // text|json
		Level  string // debug|info|warn|error
	}

	HTTP struct {
		Addr              string
		ReadHeaderTimeout time.Duration
		ReadTimeout       time.Duration
		WriteTimeout      time.Duration
		IdleTimeout       time.Duration
		ShutdownTimeout   time.Duration
	}

	Session struct {
		Backend  string // memory|redis|postgres
		TTL      time.Duration
		MaxIdle  time.Duration // in-memory cache eviction
		SweepInt time.Duration
	}

	Postgres struct {
		URL           string
		RunMigrations bool
		MigrationsDir string
	}

	Redis struct {
		Addr string
		DB   int
	}

	Auth struct {
		Secret   string
		TokenTTL time.Duration
	}

	Game struct {
		Seed uint64 // 0 => non-deterministic secrets
	}
}

func LoadFromEnv() (Config, error) {
	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Log.Format = envString("LOG_FORMAT", "text")
	c.Log.Level = envString("LOG_LEVEL", "info")

	port := envString("PORT", "8080")
	c.HTTP.Addr = envString("HTTP_ADDR", ":"+port)
	c.HTTP.ReadHeaderTimeout = envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	c.HTTP.ReadTimeout = envDuration("HTTP_READ_TIMEOUT", 0)
	c.HTTP.WriteTimeout = envDuration("HTTP_WRITE_TIMEOUT", 0)
	c.HTTP.IdleTimeout = envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	c.HTTP.ShutdownTimeout = envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	c.Session.Backend = envString("SESSION_BACKEND", BackendMemory)
	c.Session.TTL = envDuration("SESSION_TTL", 24*time.Hour)
	c.Session.MaxIdle = envDuration("SESSION_MAX_IDLE", 30*time.Minute)
	c.Session.SweepInt = envDuration("SESSION_SWEEP_INTERVAL", time.Minute)

	c.Postgres.URL = envString("DATABASE_URL", "")
	c.Postgres.RunMigrations = envBool("RUN_MIGRATIONS", false)
	c.Postgres.MigrationsDir = envString("MIGRATIONS_DIR", "./db/migrations")

	c.Redis.Addr = envString("REDIS_ADDR", "localhost:6379")
	c.Redis.DB = envInt("REDIS_DB", 0)

	c.Auth.Secret = envString("JWT_SECRET", defaultJWTSecret)
	c.Auth.TokenTTL = envDuration("JWT_TTL", 24*time.Hour)

	c.Game.Seed = envUint64("GAME_SEED", 0)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("HTTP addr is empty")
	}
	switch c.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is empty")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL is empty")
		}
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND=%q (want memory|redis|postgres)", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Session.SweepInt <= 0 || c.Session.MaxIdle <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL and SESSION_MAX_IDLE must be positive")
	}
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET is empty")
	}
	if c.Env != "dev" && c.Auth.Secret == defaultJWTSecret {
		return fmt.Errorf("refuse to run with default JWT_SECRET in %s", c.Env)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL=%q (want debug|info|warn|error)", c.Log.Level)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func envUint64(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			return n
		}
	}
	return def
}
