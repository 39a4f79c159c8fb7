package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. CARGO2HF_CACHE_TTL.
	EnvPrefix = "CARGO2HF"

	// ProjectFile is the per-project config file, looked up in the project
	// directory.
	ProjectFile = ".cargo2hf.yaml"

	// GlobalFile is the user config file under $XDG_CONFIG_HOME/cargo2hf.
	GlobalFile = "cargo2hf.yaml"
)

// Loader resolves configuration with the following priority (highest to
// lowest):
//  1. Flags that were set explicitly
//  2. Environment variables (CARGO2HF_*)
//  3. File: File if set, else the project file merged over the global file
//  4. Default values
type Loader struct {
	// File is an explicit config file. When set, it must exist and the
	// project and global files are not read.
	File string

	// ProjectDir is searched for ProjectFile.
	ProjectDir string

	// GlobalDir overrides the user config directory.
	GlobalDir string

	// Flags maps config keys to command-line flags.
	Flags map[string]*pflag.Flag
}

// Load reads and validates the configuration.
func (l Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, flag := range l.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	if err := l.readFiles(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l Loader) readFiles(v *viper.Viper) error {
	if l.File != "" {
		v.SetConfigFile(l.File)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", l.File, err)
		}
		return nil
	}

	for _, path := range l.searchPaths() {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return nil
}

// searchPaths lists candidate files from lowest to highest priority.
func (l Loader) searchPaths() []string {
	var paths []string
	dir := l.GlobalDir
	if dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(base, "cargo2hf")
		}
	}
	if dir != "" {
		paths = append(paths, filepath.Join(dir, GlobalFile))
	}
	if l.ProjectDir != "" {
		paths = append(paths, filepath.Join(l.ProjectDir, ProjectFile))
	}
	return paths
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("network_concurrency", d.NetworkConcurrency)
	v.SetDefault("max_depth", d.MaxDepth)
	v.SetDefault("max_nodes", d.MaxNodes)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("compression", d.Compression)
	v.SetDefault("include_optional", d.IncludeOptional)
	v.SetDefault("cargo_home", d.CargoHome)

	v.SetDefault("cache.disabled", d.Cache.Disabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)

	v.SetDefault("registry.url", d.Registry.URL)
	v.SetDefault("registry.user_agent", d.Registry.UserAgent)
	v.SetDefault("registry.retries", d.Registry.Retries)

	v.SetDefault("source.exclude", d.Source.Exclude)
	v.SetDefault("source.max_file_size", d.Source.MaxFileSize)
}
