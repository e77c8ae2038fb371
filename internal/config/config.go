// Package config loads service settings.
//
// Precedence, lowest first: built-in defaults, the YAML file named by
// CATALOG_CONFIG, then environment variables. A .env file is loaded into the
// environment first and never overrides variables already set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port               string   `yaml:"port"`
	DatabaseDriver     string   `yaml:"db_driver"`
	DatabaseURL        string   `yaml:"db_dsn"`
	AutoMigrate        bool     `yaml:"auto_migrate"`
	SeedDemoData       bool     `yaml:"seed_demo_data"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
}

func Default() Config {
	return Config{
		Port:               "8080",
		DatabaseDriver:     DriverSQLite,
		DatabaseURL:        "file:triptales.db",
		AutoMigrate:        true,
		SeedDemoData:       false,
		CORSAllowedOrigins: []string{"*"},
	}
}

func Load() (Config, error) {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	cfg := Default()
	if path := os.Getenv("CATALOG_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = readString("PORT", cfg.Port)
	cfg.DatabaseDriver = strings.ToLower(readString("DB_DRIVER", cfg.DatabaseDriver))
	cfg.DatabaseURL = readString("DB_DSN", cfg.DatabaseURL)
	cfg.AutoMigrate = readBool("DB_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.SeedDemoData = readBool("SEED_DEMO_DATA", cfg.SeedDemoData)
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		cfg.CORSAllowedOrigins = splitList(raw)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func readString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
