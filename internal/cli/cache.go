package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cargo2hf/internal/config"
	"github.com/matzehuels/cargo2hf/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the crates.io response cache",
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file")

	load := func() (*config.Config, error) {
		return config.Loader{File: configFile, ProjectDir: "."}.Load()
	}
	cmd.AddCommand(c.cacheClearCommand(load))
	cmd.AddCommand(c.cachePathCommand(load))

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached registry responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			if cfg.Cache.RedisURL != "" {
				rc, err := cache.NewRedisCache(cmd.Context(), cfg.Cache.RedisURL)
				if err != nil {
					return fmt.Errorf("connect cache: %w", err)
				}
				defer rc.Close()
				if err := rc.Clear(cmd.Context()); err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				printSuccess(c.Out, "Cleared cached entries")
				printDetail(c.Out, "Redis: %s", cfg.Cache.RedisURL)
				return nil
			}

			dir, err := cacheDir(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			if err := fc.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess(c.Out, "Cleared cached entries")
			printDetail(c.Out, "Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Cache.RedisURL != "" {
				fmt.Fprintln(c.Out, cfg.Cache.RedisURL)
				return nil
			}
			dir, err := cacheDir(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.Out, dir)
			return nil
		},
	}
}
