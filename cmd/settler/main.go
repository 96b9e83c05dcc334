package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/rango-exchange/router-middleware/pkg/app/http"
	"github.com/rango-exchange/router-middleware/pkg/auth"
	"github.com/rango-exchange/router-middleware/pkg/config"
	"github.com/rango-exchange/router-middleware/pkg/events"
	"github.com/rango-exchange/router-middleware/pkg/evm/sim"
	"github.com/rango-exchange/router-middleware/pkg/fees"
	"github.com/rango-exchange/router-middleware/pkg/guard"
	"github.com/rango-exchange/router-middleware/pkg/interchain"
	"github.com/rango-exchange/router-middleware/pkg/pgutil"
	"github.com/rango-exchange/router-middleware/pkg/registry"
	settlementservice "github.com/rango-exchange/router-middleware/pkg/settlement/service"
	"github.com/rango-exchange/router-middleware/pkg/store"
	"github.com/rango-exchange/router-middleware/pkg/swapper"
)

const defaultRequestTimeout = 60

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting settler",
		zap.String("config", *configPath),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int64("chain_id", cfg.Chain.ChainID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	st := store.New(db)

	// The settler runs the router core against a simulated chain: the wrapped
	// native contract sits at the configured address so registry config and
	// scenario files line up with a real deployment.
	wrappedNative := cfg.Chain.WrappedNativeAddress()
	world := sim.NewWorld()
	sim.DeployWrappedNativeAt(world, wrappedNative, cfg.Chain.NativeSymbol)
	routerAddr := world.NewAccount()
	host := world.HostFor(routerAddr)

	reg := registry.NewPgRegistry(st, wrappedNative, logger)
	g := guard.New()
	sink := events.MultiSink{
		events.MetricsSink{},
		&events.LogSink{Logger: logger},
		store.NewSink(st, logger),
	}

	dispatcher := interchain.NewDispatcher(host, reg, g, sink, logger)
	executor := swapper.NewExecutor(host, reg, fees.NewAccountant(host, sink), g, sink, logger)

	svc := settlementservice.NewLog(
		settlementservice.NewService(dispatcher, executor, reg, st, logger),
		logger,
	)

	authority := auth.NewTokenAuthority(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	stopMetrics := startMetricsServer(cfg.Monitoring, logger)
	defer stopMetrics()

	mux := setupRouter(svc, st, authority, logger)
	if err := apphttp.ServeAndWait(ctx, mux, logger, &cfg.Server); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func setupRouter(
	svc settlementservice.Service,
	st *store.Store,
	authority *auth.TokenAuthority,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		settlementservice.RegisterRoutes(v1, svc, logger)

		v1.Route("/whitelist", func(wl chi.Router) {
			wl.Use(authority.Middleware())
			registry.NewHandler(st, logger).RegisterRoutes(wl)
		})
	})

	return r
}

// startMetricsServer serves prometheus metrics on its own port, so the
// scrape surface never shares a listener with the settlement API.
func startMetricsServer(cfg config.MonitoringConfig, logger *zap.Logger) func() {
	if !cfg.Enabled {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}

	go func() {
		logger.Info("Metrics server listening", zap.Int("port", cfg.MetricsPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
