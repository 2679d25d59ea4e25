// Package config loads application configuration from an optional YAML file
// and CATALOG_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	Addr       string `mapstructure:"addr"`
	Collection string `mapstructure:"collection"`
}

// EmbedderConfig holds embedding gateway settings.
type EmbedderConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	TextModel  string        `mapstructure:"text_model"`
	ImageModel string        `mapstructure:"image_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// NATSConfig holds job queue settings.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// IngestConfig holds ingestion run settings.
type IngestConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	CommitPause time.Duration `mapstructure:"commit_pause"`
	URLLimit    int           `mapstructure:"url_limit"`
}

// Load reads configuration from config.yaml (if present) and environment
// variables. Environment variables use the CATALOG prefix with underscores,
// e.g. CATALOG_QDRANT_ADDR.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/catalog/")

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		// No config file; environment variables and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")

	v.SetDefault("qdrant.addr", "localhost:6334")
	v.SetDefault("qdrant.collection", "products")

	v.SetDefault("embedder.base_url", "http://localhost:9000")
	v.SetDefault("embedder.text_model", "all-mpnet-base-v2")
	v.SetDefault("embedder.image_model", "clip-vit-base-patch32")
	v.SetDefault("embedder.timeout", "15s")

	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("ingest.batch_size", 16)
	v.SetDefault("ingest.commit_pause", "600ms")
	v.SetDefault("ingest.url_limit", 50)
}

func validate(cfg *Config) error {
	if cfg.Qdrant.Addr == "" {
		return fmt.Errorf("qdrant address is required (set CATALOG_QDRANT_ADDR)")
	}
	if cfg.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant collection is required (set CATALOG_QDRANT_COLLECTION)")
	}
	if cfg.Embedder.BaseURL == "" {
		return fmt.Errorf("embedder base URL is required (set CATALOG_EMBEDDER_BASE_URL)")
	}
	if cfg.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest batch size must be positive, got: %d", cfg.Ingest.BatchSize)
	}
	return nil
}
