package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"

	"github.com/okian/battle64/internal/adapters/http/api"
	"github.com/okian/battle64/internal/adapters/http/live"
	"github.com/okian/battle64/internal/adapters/http/swagger"
	"github.com/okian/battle64/internal/adapters/mq/natsbus"
	"github.com/okian/battle64/internal/adapters/repository"
	app "github.com/okian/battle64/internal/app"
	"github.com/okian/battle64/internal/config"
	"github.com/okian/battle64/internal/domain/timing"
	"github.com/okian/battle64/internal/domain/types"
	"github.com/okian/battle64/pkg/logger"
	"github.com/okian/battle64/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Only battle64 metrics are exported.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "battle64 exited with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	// The hub reads snapshots from the service, which broadcasts through the hub.
	var svc *app.Service
	hub := live.NewHub(hubConfig(cfg), live.SnapshotFunc(func(ctx context.Context, eventID string) (types.Update, error) {
		return svc.CurrentUpdate(ctx, eventID)
	}), log.Named("live"))
	defer hub.Close()

	tieBreak, _ := timing.ParseTieBreak(cfg.TieBreak) // validated by config.Load
	opts := []app.Option{
		app.WithLogger(log),
		app.WithStore(store),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithTieBreak(tieBreak),
		app.WithMaxUsernameLength(cfg.MaxUsernameLength),
		app.WithRefreshInterval(cfg.RefreshInterval),
		app.WithLiveEntries(cfg.MaxLeaderboardLimit),
		app.WithBroadcaster(hub),
	}
	if cfg.NATSURL != "" {
		natsCfg := natsbus.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
		pub, err := natsbus.Connect(natsCfg, log.Named("nats"))
		if err != nil {
			_ = store.Close()
			return err
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, app.WithBroadcaster(pub))
		log.Info(ctx, "publishing leaderboard updates to NATS", logger.String("subjectPrefix", cfg.NATSSubjectPrefix))
	}

	svc = app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return err
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, hub),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newStore opens the configured entry store.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// newHandler registers every route and wraps the mux with CORS.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, hub *live.Hub) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)
	hub.Register(mux)

	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}).Handler(mux)
}

func hubConfig(cfg *config.Config) live.Config {
	hc := live.DefaultConfig()
	hc.CheckOrigin = originChecker(cfg.CORSAllowedOrigins)
	return hc
}

// originChecker applies the CORS allow-list to websocket upgrades. Requests
// without an Origin header are not from browsers and are allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// startServiceMetricsUpdater periodically copies service stats into gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if n, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(n)
	}
	if n, ok := stats["totalEntries"].(int); ok {
		metrics.UpdateStoreEntries(n)
	}
	if n, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(n)
	}
}
