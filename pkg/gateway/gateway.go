// Package gateway assembles the request router: provider registry,
// boot discovery, routing table, dispatch engine, HTTP server, and the
// background jobs that keep them current.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"relaypoint/gateway/pkg/config"
	"relaypoint/gateway/pkg/providers"
	"relaypoint/gateway/pkg/proxy"
	"relaypoint/gateway/pkg/proxy/handlers"
	"relaypoint/gateway/pkg/proxy/middleware"
	"relaypoint/gateway/pkg/routing"
	"relaypoint/gateway/pkg/server"
	"relaypoint/gateway/pkg/telemetry/metrics"
)

// Options configures a Gateway.
type Options struct {
	Config *config.Config

	// ConfigPath, when set, is watched for changes; edits rebuild the
	// alias table without a restart.
	ConfigPath string

	// Environ is reapplied over the file on every reload so
	// environment settings keep precedence.
	Environ []string

	Logger *slog.Logger
}

// Gateway is one running instance of the request router.
type Gateway struct {
	cfg     *config.Config
	logger  *slog.Logger
	environ []string

	registry   *providers.Registry
	discoverer *providers.Discoverer
	collector  *metrics.Collector
	engine     *proxy.Engine
	server     *server.Server

	table atomic.Pointer[routing.Table]
	ready atomic.Bool

	cron       *cron.Cron
	configPath string
	cancelJobs context.CancelFunc
	serveErr   chan error
}

// New assembles a gateway from validated configuration. Nothing is
// bound or probed yet; Start does that.
func New(opts Options) (*Gateway, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("gateway: nil config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	list := make([]*providers.Provider, 0, len(cfg.Providers))
	for id, pc := range cfg.Providers {
		list = append(list, providers.New(id, pc.BaseURL, pc.APIKeys))
	}
	registry := providers.NewRegistry(list, providers.RegistryOptions{
		ResponseHeaderTimeout: cfg.Proxy.UpstreamTimeout,
	})

	g := &Gateway{
		cfg:        cfg,
		logger:     logger,
		environ:    opts.Environ,
		registry:   registry,
		discoverer: providers.NewDiscoverer(registry, cfg.Discovery.ProbeTimeout),
		configPath: opts.ConfigPath,
		serveErr:   make(chan error, 1),
	}

	if cfg.Telemetry.Metrics.MetricsEnabled() {
		g.collector = metrics.NewCollector()
		g.discoverer.Recorder = g.collector
	}

	g.swapTable(cfg.Aliases)

	g.engine = proxy.NewEngine(proxy.EngineOptions{
		Registry:        registry,
		Table:           g.Table,
		UpstreamTimeout: cfg.Proxy.UpstreamTimeout,
		Logger:          logger,
		Metrics:         g.collector,
	})

	g.server = server.New(cfg.Server, g.routes(), logger)
	return g, nil
}

// Table returns the current routing table snapshot.
func (g *Gateway) Table() *routing.Table {
	return g.table.Load()
}

// Ready reports whether boot discovery has completed.
func (g *Gateway) Ready() bool {
	return g.ready.Load()
}

// URL returns the bound base URL. Valid after Start succeeds.
func (g *Gateway) URL() string {
	return g.server.URL()
}

// Port returns the negotiated port. Valid after Start succeeds.
func (g *Gateway) Port() int {
	return g.server.Port()
}

// Start binds the listener, serves health immediately, runs boot
// discovery to completion, and only then opens the chat endpoints.
// It returns once the gateway is ready; the listener keeps serving
// until Stop.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.server.Listen(); err != nil {
		return err
	}

	go func() { g.serveErr <- g.server.Serve() }()

	// The startup barrier: every provider is probed before the first
	// chat request is dispatched.
	g.discoverer.Discover(ctx)
	g.ready.Store(true)
	g.publishModelCounts()
	g.logger.Info("gateway ready", "url", g.URL(), "providers", g.registry.Count())

	jobsCtx, cancel := context.WithCancel(context.Background())
	g.cancelJobs = cancel
	g.startJobs(jobsCtx)
	return nil
}

// Serve blocks until the listener stops.
func (g *Gateway) Serve() error {
	return <-g.serveErr
}

// Stop shuts down the background jobs and the listener.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.cancelJobs != nil {
		g.cancelJobs()
	}
	if g.cron != nil {
		g.cron.Stop()
	}
	err := g.server.Shutdown(ctx)
	g.registry.Close()
	return err
}

// ReloadAliases rebuilds the routing table from new configuration and
// swaps it in atomically. In-flight requests finish on the table they
// started with. Provider changes are not applied live; the registry is
// fixed for the process lifetime.
func (g *Gateway) ReloadAliases(cfg *config.Config) {
	for id := range cfg.Providers {
		if g.registry.Get(id) == nil {
			g.logger.Warn("provider added in config, restart required to register it", "provider", id)
		}
	}
	g.swapTable(cfg.Aliases)
	g.logger.Info("alias table reloaded", "aliases", g.Table().Len())
}

func (g *Gateway) swapTable(aliases map[string]config.AliasConfig) {
	table, errs := routing.NewTable(buildAliases(aliases, g.logger), func(id string) bool {
		return g.registry.Get(id) != nil
	})
	for _, err := range errs {
		g.logger.Warn("alias rejected", "error", err)
	}
	g.table.Store(table)
}

func (g *Gateway) publishModelCounts() {
	if g.collector == nil {
		return
	}
	for _, p := range g.registry.All() {
		g.collector.SetProviderModels(p.ID, p.ModelCount())
	}
}

// startJobs launches the re-discovery cron and the config watcher.
func (g *Gateway) startJobs(ctx context.Context) {
	if sched := g.cfg.Discovery.RediscoverSchedule; sched != "" {
		g.cron = cron.New()
		_, err := g.cron.AddFunc(sched, func() {
			g.discoverer.Rediscover(ctx)
			g.publishModelCounts()
		})
		if err != nil {
			g.logger.Warn("invalid rediscover schedule, job disabled", "schedule", sched, "error", err)
		} else {
			g.cron.Start()
		}
	}

	if g.configPath != "" {
		watcher := config.NewWatcher(g.configPath, g.environ, g.logger)
		go func() {
			if err := watcher.Watch(ctx, g.ReloadAliases); err != nil {
				g.logger.Error("config watcher stopped", "error", err)
			}
		}()
	}
}

// notReady answers chat traffic that arrives before discovery finishes.
func (g *Gateway) notReady(w http.ResponseWriter) {
	proxy.WriteError(w, http.StatusServiceUnavailable, proxy.ErrTypeInternal, "gateway is starting")
}

// gate wraps a handler so it only serves once discovery has completed.
func (g *Gateway) gate(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.ready.Load() {
			g.notReady(w)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(g.registry, g.Table, g.Ready))
	mux.Handle("/v1/models", handlers.NewModelsHandler(g.Table))
	mux.Handle("/v1/chat/completions", g.gate(handlers.NewChatHandler(g.engine, g.cfg.Proxy.MaxBodyBytes)))
	mux.Handle("/v1/messages", g.gate(handlers.NewMessagesHandler(g.engine, g.cfg.Proxy.MaxBodyBytes)))

	if g.collector != nil {
		mux.Handle(g.cfg.Telemetry.Metrics.Path, g.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.Logging(g.logger, g.collector)(handler)
	handler = middleware.Recovery(g.logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
