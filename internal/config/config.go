package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultKeyVars lists the environment variables holding provider keys, in order
var DefaultKeyVars = []string{
	"GEMINI_KEY_1",
	"GEMINI_KEY_2",
	"GEMINI_KEY_3",
	"GEMINI_KEY_4",
	"GEMINI_KEY_5",
}

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Tutor   TutorConfig   `yaml:"tutor"`
	Catalog CatalogConfig `yaml:"catalog"`
	Runner  RunnerConfig  `yaml:"runner"`
	Events  EventsConfig  `yaml:"events"`
}

// ServerConfig holds HTTP daemon settings
type ServerConfig struct {
	Port               int    `yaml:"port"`
	Bind               string `yaml:"bind"`
	Debug              bool   `yaml:"debug"`
	LogLevel           string `yaml:"log_level"`
	LogFormat          string `yaml:"log_format"`
	LogFile            string `yaml:"log_file"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// TutorConfig holds generative-language provider settings.
// Keys are never read from the config file, only from the variables named in KeyVars.
type TutorConfig struct {
	KeyVars []string `yaml:"key_vars"`
	BaseURL string   `yaml:"base_url"`
	Model   string   `yaml:"model"`
	Keys    []string `yaml:"-"`
}

// CatalogConfig selects the topics/questions store
type CatalogConfig struct {
	Driver      string `yaml:"driver"` // postgres, sqlite, none
	DatabaseURL string `yaml:"-"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// RunnerConfig holds code execution settings
type RunnerConfig struct {
	Backend        string  `yaml:"backend"` // piston, docker
	PistonURL      string  `yaml:"piston_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxConcurrent  int     `yaml:"max_concurrent"`
	MemoryMB       int     `yaml:"memory_mb"`
	CPULimit       float64 `yaml:"cpu_limit"`
}

// EventsConfig holds execution event publishing settings
type EventsConfig struct {
	RabbitMQURL string `yaml:"-"`
}

// Default returns sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			Bind:               "0.0.0.0",
			LogLevel:           "info",
			LogFormat:          "json",
			RateLimitPerMinute: 60,
		},
		Tutor: TutorConfig{
			KeyVars: append([]string(nil), DefaultKeyVars...),
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.5-flash",
		},
		Catalog: CatalogConfig{
			Driver:     "sqlite",
			SQLitePath: "codedojo.db",
		},
		Runner: RunnerConfig{
			Backend:        "piston",
			PistonURL:      "https://emkc.org",
			TimeoutSeconds: 15,
			MaxConcurrent:  4,
			MemoryMB:       256,
			CPULimit:       0.5,
		},
	}
}

// Load reads configuration from an optional YAML file, an optional .env file
// and environment variables, in increasing order of precedence
func Load() (*Config, error) {
	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("DOJO_CONFIG"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.Tutor.Keys = CredentialPool(cfg.Tutor.KeyVars, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.Bind = getEnv("BIND", c.Server.Bind)
	c.Server.Debug = getEnvBool("DEBUG", c.Server.Debug)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Server.LogFormat = getEnv("LOG_FORMAT", c.Server.LogFormat)
	c.Server.LogFile = getEnv("LOG_FILE", c.Server.LogFile)
	c.Server.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.Server.RateLimitPerMinute)

	c.Tutor.KeyVars = getEnvList("TUTOR_KEY_VARS", c.Tutor.KeyVars)
	c.Tutor.BaseURL = getEnv("GEMINI_BASE_URL", c.Tutor.BaseURL)
	c.Tutor.Model = getEnv("GEMINI_MODEL", c.Tutor.Model)

	c.Catalog.Driver = getEnv("CATALOG_DRIVER", c.Catalog.Driver)
	c.Catalog.DatabaseURL = getEnv("DATABASE_URL", c.Catalog.DatabaseURL)
	c.Catalog.SQLitePath = getEnv("SQLITE_PATH", c.Catalog.SQLitePath)

	c.Runner.Backend = getEnv("RUNNER_BACKEND", c.Runner.Backend)
	c.Runner.PistonURL = getEnv("PISTON_URL", c.Runner.PistonURL)
	c.Runner.TimeoutSeconds = getEnvInt("RUNNER_TIMEOUT", c.Runner.TimeoutSeconds)
	c.Runner.MaxConcurrent = getEnvInt("RUNNER_MAX_CONCURRENT", c.Runner.MaxConcurrent)
	c.Runner.MemoryMB = getEnvInt("RUNNER_MEMORY_MB", c.Runner.MemoryMB)
	c.Runner.CPULimit = getEnvFloat("RUNNER_CPU_LIMIT", c.Runner.CPULimit)

	c.Events.RabbitMQURL = getEnv("RABBITMQ_URL", c.Events.RabbitMQURL)
}

// Validate checks that the selected drivers and backends are usable
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case "postgres":
		if c.Catalog.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres catalog driver")
		}
	case "sqlite":
		if c.Catalog.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set for the sqlite catalog driver")
		}
	case "none":
	default:
		return fmt.Errorf("unknown catalog driver: %q", c.Catalog.Driver)
	}

	switch c.Runner.Backend {
	case "piston", "docker":
	default:
		return fmt.Errorf("unknown runner backend: %q", c.Runner.Backend)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	return nil
}

// CredentialPool resolves the named variables in order, skipping absent or empty ones
func CredentialPool(names []string, lookup func(string) (string, bool)) []string {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		value, ok := lookup(name)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		keys = append(keys, value)
	}
	return keys
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList parses a comma separated list, ignoring blank items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
