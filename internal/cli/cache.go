package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/countrymap/internal/config"
	"github.com/matzehuels/countrymap/pkg/cache"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or empty the local document and render cache",
		Long: `The file cache holds fetched metrics and features documents for an hour
and rendered artifacts for a week. Redis caches are managed by Redis.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := c.Config.CacheDir()
			if err != nil {
				return fmt.Errorf("resolve cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.withFileCache(func(fc *cache.FileCache) error {
				n, err := fc.Clear()
				if err != nil {
					return err
				}
				printSuccess("Cleared %s", plural(n, "cached entry", "cached entries"))
				printDetail("Directory: %s", fc.Dir())
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries only",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.withFileCache(func(fc *cache.FileCache) error {
				n, err := fc.Prune()
				if err != nil {
					return err
				}
				printSuccess("Pruned %s", plural(n, "expired entry", "expired entries"))
				return nil
			})
		},
	})
	return cmd
}

// withFileCache runs fn on the configured file cache. Other backends and a
// missing directory are reported and skipped.
func (c *CLI) withFileCache(fn func(*cache.FileCache) error) error {
	if b := c.Config.Cache.Backend; b != "" && b != config.CacheFile {
		printInfo("Cache backend is %q; only the file cache is managed here", b)
		return nil
	}
	dir, err := c.Config.CacheDir()
	if err != nil {
		return fmt.Errorf("resolve cache dir: %w", err)
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		printInfo("Cache is empty")
		return nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	return fn(fc)
}
