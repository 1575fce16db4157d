package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/openchain/pkg/backend"
	"github.com/matzehuels/openchain/pkg/buildinfo"
	"github.com/matzehuels/openchain/pkg/cache"
	"github.com/matzehuels/openchain/pkg/config"
	"github.com/matzehuels/openchain/pkg/layout"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "openchain"

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

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "OpenChain explores GitHub recommendation graphs",
		Long:         `OpenChain finds GitHub users and repositories related to a user or repository, lays the result out as a force-directed graph and explains why two nodes are related.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: "+config.DefaultPath()+")")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Factories
// =============================================================================

// loadConfig reads the config file named by --config, or the default one.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("config loaded", "backend", cfg.Backend.URL, "cache", cfg.Cache.Backend)
	return cfg, nil
}

// openCache opens the response cache described by cfg. noCache disables it.
func openCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return cache.Open(ctx, cache.Options{
		Backend:  cfg.Cache.Backend,
		Dir:      cfg.Cache.Dir,
		RedisURL: cfg.Cache.RedisURL,
		Prefix:   cfg.Cache.Prefix,
	})
}

// newBackend creates a backend client that caches recommendations in ch.
func newBackend(cfg *config.Config, ch cache.Cache) (*backend.Client, error) {
	return backend.NewClient(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout.Duration),
		backend.WithRetry(cfg.Backend.Attempts, cfg.Backend.RetryDelay.Duration),
		backend.WithCache(ch, cfg.Cache.TTL.Duration),
	)
}

// layoutOptions converts the layout section of cfg.
func layoutOptions(cfg *config.Config) layout.Options {
	return layout.Options{
		Width:    cfg.Layout.Width,
		Height:   cfg.Layout.Height,
		Interval: cfg.Layout.Interval.Duration,
	}
}
