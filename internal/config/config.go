// Package config loads cargo2hf settings from files, the environment and
// command-line flags.
package config

import (
	"time"

	"github.com/matzehuels/cargo2hf/pkg/cache"
	"github.com/matzehuels/cargo2hf/pkg/columnar"
	"github.com/matzehuels/cargo2hf/pkg/deps"
	"github.com/matzehuels/cargo2hf/pkg/extract"
	"github.com/matzehuels/cargo2hf/pkg/integrations"
	"github.com/matzehuels/cargo2hf/pkg/integrations/crates"
	"github.com/matzehuels/cargo2hf/pkg/pipeline"
)

// Config is the complete cargo2hf configuration.
type Config struct {
	Concurrency        int    `yaml:"concurrency" mapstructure:"concurrency"`                 // targets in flight per local phase
	NetworkConcurrency int    `yaml:"network_concurrency" mapstructure:"network_concurrency"` // targets in flight per crates.io phase
	MaxDepth           int    `yaml:"max_depth" mapstructure:"max_depth"`
	MaxNodes           int    `yaml:"max_nodes" mapstructure:"max_nodes"`
	BatchSize          int    `yaml:"batch_size" mapstructure:"batch_size"` // rows per parquet row group
	Compression        string `yaml:"compression" mapstructure:"compression"`
	IncludeOptional    bool   `yaml:"include_optional" mapstructure:"include_optional"`
	CargoHome          string `yaml:"cargo_home" mapstructure:"cargo_home"` // empty: $CARGO_HOME or ~/.cargo

	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
}

// CacheConfig configures the HTTP response cache.
type CacheConfig struct {
	Disabled bool          `yaml:"disabled" mapstructure:"disabled"`
	Dir      string        `yaml:"dir" mapstructure:"dir"` // empty: user cache dir
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisURL string        `yaml:"redis_url" mapstructure:"redis_url"` // shared cache instead of files
}

// RegistryConfig configures the crates.io client.
type RegistryConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	Retries   int    `yaml:"retries" mapstructure:"retries"`
}

// SourceConfig configures the source_code phase.
type SourceConfig struct {
	Exclude     []string `yaml:"exclude" mapstructure:"exclude"`             // globs relative to each crate root
	MaxFileSize int64    `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Concurrency:        pipeline.DefaultConcurrency,
		NetworkConcurrency: pipeline.DefaultNetworkConcurrency,
		MaxDepth:           deps.DefaultMaxDepth,
		MaxNodes:           deps.DefaultMaxNodes,
		BatchSize:          columnar.DefaultBatchSize,
		Compression:        "snappy",
		Cache: CacheConfig{
			TTL: cache.TTLCrate,
		},
		Registry: RegistryConfig{
			URL:     crates.DefaultBaseURL,
			Retries: integrations.DefaultAttempts,
		},
		Source: SourceConfig{
			MaxFileSize: extract.DefaultMaxFileSize,
		},
	}
}

// SourceOptions converts the source settings for the extractors.
func (c *Config) SourceOptions() extract.SourceOptions {
	return extract.SourceOptions{Exclude: c.Source.Exclude, MaxFileSize: c.Source.MaxFileSize}
}

// CratesConfig converts the registry settings for the crates.io client.
func (c *Config) CratesConfig() crates.Config {
	return crates.Config{
		BaseURL:   c.Registry.URL,
		UserAgent: c.Registry.UserAgent,
		TTL:       c.Cache.TTL,
		Retries:   c.Registry.Retries,
	}
}
