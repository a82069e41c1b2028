// Package config loads registry configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/circuitforge/registry/pkg/logger"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
}

// DatabaseConfig selects the optional Postgres backend. When DSN is empty the
// in-memory store is used.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// AuthConfig controls session token issuance and validation.
type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	// AllowLegacyTokens accepts a raw account id as a bearer token. Used by
	// test harnesses that predate JWT sessions.
	AllowLegacyTokens bool `yaml:"allow_legacy_tokens"`
}

// SeedConfig controls fixture seeding at startup.
type SeedConfig struct {
	Enabled          bool   `yaml:"enabled"`
	AutoloadPackages bool   `yaml:"autoload_packages"`
	RegistryURL      string `yaml:"registry_url"`
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Database DatabaseConfig       `yaml:"database"`
	Auth     AuthConfig           `yaml:"auth"`
	Seed     SeedConfig           `yaml:"seed"`
	Logging  logger.LoggingConfig `yaml:"logging"`
	CORS     struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3100,
			ReadTimeout:  15,
			WriteTimeout: 30,
		},
		Auth: AuthConfig{
			JWTSecret:         "dev-secret-do-not-use-in-production",
			SessionTTLMinutes: 24 * 60,
		},
		Seed: SeedConfig{
			Enabled:     true,
			RegistryURL: "https://registry-api.tscircuit.com",
		},
		Logging: logger.LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

// Load reads CONFIG_PATH (if set), then applies environment overrides.
// A .env file in the working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Auth.SessionTTLMinutes <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			cfg.Auth.SessionTTLMinutes = ttl
		}
	}
	if v := os.Getenv("AUTH_ALLOW_LEGACY_TOKENS"); v != "" {
		cfg.Auth.AllowLegacyTokens = envBool(v)
	}
	if v := os.Getenv("SEED_ENABLED"); v != "" {
		cfg.Seed.Enabled = envBool(v)
	}
	if v := os.Getenv("AUTOLOAD_PACKAGES"); v != "" {
		cfg.Seed.AutoloadPackages = envBool(v)
	}
	if v := os.Getenv("REGISTRY_URL"); v != "" {
		cfg.Seed.RegistryURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
}

func envBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
