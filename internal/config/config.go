// Package config loads server configuration from the environment and an
// optional .env file using Viper, and turns it into an ffauth.Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/ffauth"
	"github.com/spf13/viper"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config holds process configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the listen address of the HTTP server.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or console.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	AccessSecret             string `mapstructure:"FF_ACCESS_SECRET"`
	RefreshSecret            string `mapstructure:"FF_REFRESH_SECRET"`
	AccessTTLSeconds         int    `mapstructure:"FF_ACCESS_TTL_SECONDS"`
	RefreshTTLSeconds        int    `mapstructure:"FF_REFRESH_TTL_SECONDS"`
	RotationThresholdSeconds int    `mapstructure:"FF_ROTATION_THRESHOLD_SECONDS"`
	JWTIssuer                string `mapstructure:"FF_JWT_ISSUER"`

	// BcryptCost is the bcrypt cost factor for new hashes (4-31).
	BcryptCost          int  `mapstructure:"BCRYPT_COST"`
	SessionPruneOnLogin bool `mapstructure:"SESSION_PRUNE_ON_LOGIN"`
	AuditEnabled        bool `mapstructure:"AUDIT_ENABLED"`

	// StoreDriver selects the persistence backend: memory, redis, mongo or postgres.
	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`

	// CORSAllowedOrigins is a comma-separated origin list; empty disables
	// cross-origin access and "*" allows any origin without credentials.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Environment variables override .env.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("FF_ACCESS_SECRET", "")
	v.SetDefault("FF_REFRESH_SECRET", "")
	v.SetDefault("FF_ACCESS_TTL_SECONDS", 900)
	v.SetDefault("FF_REFRESH_TTL_SECONDS", 604800)
	v.SetDefault("FF_ROTATION_THRESHOLD_SECONDS", 86400)
	v.SetDefault("FF_JWT_ISSUER", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SESSION_PRUNE_ON_LOGIN", true)
	v.SetDefault("AUDIT_ENABLED", true)
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "fitforge")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when STORE_DRIVER=redis")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGO_URI must be set when STORE_DRIVER=mongo")
		}
		if c.MongoDatabase == "" {
			return errors.New("config: MONGO_DATABASE must be set when STORE_DRIVER=mongo")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	engineCfg := c.Engine()
	if err := engineCfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Engine returns the ffauth engine configuration described by c.
func (c *Config) Engine() ffauth.Config {
	cfg := ffauth.DefaultConfig()

	cfg.JWT.AccessSecret = []byte(c.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.RefreshSecret)
	cfg.JWT.AccessTTL = seconds(c.AccessTTLSeconds)
	cfg.JWT.RefreshTTL = seconds(c.RefreshTTLSeconds)
	cfg.JWT.Issuer = strings.TrimSpace(c.JWTIssuer)

	cfg.Session.RotationThreshold = seconds(c.RotationThresholdSeconds)
	cfg.Session.PruneOnLogin = c.SessionPruneOnLogin

	cfg.Password.BcryptCost = c.BcryptCost
	cfg.Audit.Enabled = c.AuditEnabled

	return cfg
}

// AllowedOrigins returns the CORS origins from the comma-separated config.
func (c *Config) AllowedOrigins() []string {
	if c == nil || c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// DatabaseURL reads only DATABASE_URL (from the environment or .env), for
// tools that do not need a full engine configuration.
func DatabaseURL() string {
	return databaseURL(".env")
}

func databaseURL(envFile string) string {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	return strings.TrimSpace(v.GetString("DATABASE_URL"))
}
