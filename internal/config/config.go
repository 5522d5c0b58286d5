// Package config loads the optional YAML configuration file. Every setting
// has a workable default so the CLI runs with no file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fcc_stations/internal/storage"
)

// Config is the full tool configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Fetch    FetchConfig    `yaml:"fetch"`
	NATS     NATSConfig     `yaml:"nats"`
	Genre    GenreConfig    `yaml:"genre"`
}

// DatabaseConfig selects and configures the storage backends.
type DatabaseConfig struct {
	Backend    string           `yaml:"backend"` // "sqlite" (default) or "postgres"
	SQLitePath string           `yaml:"sqlite_path"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// PostgresConfig mirrors storage.PostgresConfig in YAML form.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ClickHouseConfig mirrors storage.ClickHouseConfig in YAML form.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// FetchConfig bounds the feed downloads.
type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the download timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NATSConfig configures the optional record publisher.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// GenreConfig configures the Gemini classifier. The GEMINI_API_KEY
// environment variable always wins over the file so keys stay out of
// checked-in configs.
type GenreConfig struct {
	APIKey string `yaml:"api_key"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	sc := storage.DefaultConfig()
	return &Config{
		Database: DatabaseConfig{
			Backend:    sc.Backend,
			SQLitePath: sc.SQLitePath,
			Postgres: PostgresConfig{
				Host:     sc.Postgres.Host,
				Port:     sc.Postgres.Port,
				Database: sc.Postgres.Database,
				User:     sc.Postgres.User,
				Password: sc.Postgres.Password,
			},
			ClickHouse: ClickHouseConfig{
				Host:     sc.ClickHouse.Host,
				Port:     sc.ClickHouse.Port,
				Database: sc.ClickHouse.Database,
				User:     sc.ClickHouse.User,
				Password: sc.ClickHouse.Password,
			},
		},
		Fetch: FetchConfig{TimeoutSeconds: 120},
		NATS:  NATSConfig{URL: "nats://localhost:4222"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults; a missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Genre.APIKey = key
	}
}

func (c *Config) validate() error {
	switch c.Database.Backend {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database backend %q", c.Database.Backend)
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return fmt.Errorf("negative fetch timeout %d", c.Fetch.TimeoutSeconds)
	}
	return nil
}

// StorageConfig converts the YAML form into the storage package's config.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:    c.Database.Backend,
		SQLitePath: c.Database.SQLitePath,
		Postgres: storage.PostgresConfig{
			Host:     c.Database.Postgres.Host,
			Port:     c.Database.Postgres.Port,
			Database: c.Database.Postgres.Database,
			User:     c.Database.Postgres.User,
			Password: c.Database.Postgres.Password,
		},
		ClickHouse: storage.ClickHouseConfig{
			Host:     c.Database.ClickHouse.Host,
			Port:     c.Database.ClickHouse.Port,
			Database: c.Database.ClickHouse.Database,
			User:     c.Database.ClickHouse.User,
			Password: c.Database.ClickHouse.Password,
		},
	}
}
