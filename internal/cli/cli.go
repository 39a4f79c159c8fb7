package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cargo2hf/internal/config"
	"github.com/matzehuels/cargo2hf/pkg/buildinfo"
	"github.com/matzehuels/cargo2hf/pkg/cache"
	"github.com/matzehuels/cargo2hf/pkg/integrations/crates"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "cargo2hf"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives status lines; progress and logs go to stderr.
	Out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "cargo2hf exports Cargo projects as Parquet datasets",
		Long:          `cargo2hf extracts metadata, dependencies, source statistics, build configuration and crates.io history from a Cargo project and its dependencies, writing one Parquet table per extraction phase.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Registry Factory
// =============================================================================

// newRegistry creates the crates.io client backed by the configured cache.
// The returned cache must be closed by the caller.
func newRegistry(ctx context.Context, cfg *config.Config) (*crates.Client, cache.Cache, error) {
	backend, err := newCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := crates.NewClient(backend, cfg.CratesConfig())
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return client, backend, nil
}

// newCache selects the response cache: none when disabled, redis when a
// URL is configured, files otherwise.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch {
	case cfg.Cache.Disabled:
		return cache.NewNullCache(), nil
	case cfg.Cache.RedisURL != "":
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, defaulting to the user
// cache directory (~/.cache/cargo2hf/).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}
