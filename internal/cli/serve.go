package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/matzehuels/openchain/internal/server"
	"github.com/matzehuels/openchain/pkg/config"
	"github.com/matzehuels/openchain/pkg/history"
)

// serveCommand creates the serve command that runs the web server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		backendURL string
		noMetrics  bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web page and API proxy",
		Long: `Run the OpenChain web server.

The server proxies /api/recommend and /api/analyze to the recommendation
backend, serves the graph page at / and streams live layouts over /ws/graph.
Prometheus metrics are exposed at /metrics unless --no-metrics is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if backendURL != "" {
				cfg.Backend.URL = backendURL
			}
			if noMetrics {
				cfg.Server.Metrics = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg, noCache)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, :3000)")
	cmd.Flags().StringVarP(&backendURL, "backend", "b", "", "backend base URL")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the recommendation cache")

	return cmd
}

// runServe wires the cache, backend client, history store and metrics into a
// server and serves until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, cfg *config.Config, noCache bool) error {
	ch, err := openCache(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer ch.Close()

	client, err := newBackend(cfg, ch)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	store, err := history.Open(ctx, history.Options{
		Backend:    cfg.History.Backend,
		Capacity:   cfg.History.Capacity,
		MongoURI:   cfg.History.MongoURI,
		Database:   cfg.History.Database,
		Collection: cfg.History.Collection,
	})
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close(context.WithoutCancel(ctx))

	var reg *prometheus.Registry
	if cfg.Server.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	srv := server.New(server.Options{
		Backend:         client,
		History:         store,
		Logger:          c.Logger,
		Registry:        reg,
		AnalyzeRate:     rate.Limit(cfg.Analysis.RateLimit),
		AnalyzeBurst:    cfg.Analysis.Burst,
		AnalysisTimeout: cfg.Analysis.Timeout.Duration,
		Layout:          layoutOptions(cfg),
	})
	if m := srv.Metrics(); m != nil {
		m.Install()
	}

	if err := client.Health(ctx); err != nil {
		c.Logger.Warn("backend not reachable", "url", cfg.Backend.URL, "err", err)
	}

	printSuccess("Serving on %s", StyleHighlight.Render(cfg.Server.Addr))
	printKeyValue("Backend", cfg.Backend.URL)
	printKeyValue("Cache", cfg.Cache.Backend)
	printKeyValue("History", cfg.History.Backend)
	printNewline()

	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout.Duration)
}
