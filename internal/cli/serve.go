package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/countrymap/internal/server"
	"github.com/matzehuels/countrymap/pkg/cache"
	"github.com/matzehuels/countrymap/pkg/loader"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		metrics  string
		features string
		store    string
		noCache  bool
		refresh  bool
		prom     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive map over HTTP",
		Long: `Serve the map page, the data documents and the widget API.

Each browser gets a session whose widget state is kept in the configured
store (memory, file, redis or mongo). Both documents are loaded once at
startup; a failed metrics load is served as a map with fallback colors.`,
		Example: `  countrymap serve
  countrymap serve --addr :9090 --metrics https://example.com/country_requests_data.json
  countrymap serve --session-store redis --prometheus`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				c.Config.Server.Addr = addr
			}
			if flags.Changed("metrics") {
				c.Config.Metrics = metrics
			}
			if flags.Changed("features") {
				c.Config.Features = features
			}
			if flags.Changed("session-store") {
				c.Config.Session.Backend = store
			}
			if flags.Changed("prometheus") {
				c.Config.Server.Metrics = prom
			}
			if err := c.Config.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), noCache, refresh)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&metrics, "metrics", "", "metrics document path or URL")
	cmd.Flags().StringVar(&features, "features", "", "geometry document path or URL")
	cmd.Flags().StringVar(&store, "session-store", "", "session backend: memory, file, redis, mongo")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the document cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch remote documents even if cached")
	cmd.Flags().BoolVar(&prom, "prometheus", false, "expose Prometheus metrics at /metrics")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache, refresh bool) error {
	cfg := c.Config

	docCache, err := cfg.OpenCache(ctx, noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer docCache.Close()

	store, err := cfg.OpenSessionStore(ctx)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	var reg *prometheus.Registry
	if cfg.Server.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	opts := cfg.PipelineOptions()
	opts.Refresh = refresh
	opts.Logger = c.Logger

	srv, err := server.New(server.Options{
		Loader:     loader.New(docCache, c.Config.Keyer(), cache.TTLDocument, c.Logger),
		Store:      store,
		Pipeline:   opts,
		SessionTTL: cfg.Session.TTL,
		Registry:   reg,
		Logger:     c.Logger,
	})
	if err != nil {
		_ = store.Close()
		return err
	}
	defer srv.Close()

	spinner := newSpinnerWithContext(ctx, "Loading documents...")
	spinner.Start()
	loadErr := srv.Load(ctx)
	spinner.Stop()
	if loadErr != nil {
		printWarning("Serving with missing data: %v", loadErr)
	} else {
		printSuccess("Documents loaded")
	}

	printKeyValue("Address", StyleLink.Render(displayURL(cfg.Server.Addr)))
	printKeyValue("Sessions", cfg.Session.Backend)
	if reg != nil {
		printKeyValue("Metrics", displayURL(cfg.Server.Addr)+"/metrics")
	}

	err = srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout)
	if errors.Is(err, context.Canceled) {
		printInfo("Server stopped")
	}
	return err
}

// displayURL turns a listen address into a browsable URL.
func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
