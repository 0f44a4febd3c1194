package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/maciegg5/regon-search/internal/platform/config"
	"github.com/maciegg5/regon-search/internal/platform/health"
	"github.com/maciegg5/regon-search/internal/platform/logger"
	"github.com/maciegg5/regon-search/internal/registry/handler"
	"github.com/maciegg5/regon-search/internal/registry/metrics"
	"github.com/maciegg5/regon-search/internal/registry/providers/adapters"
	"github.com/maciegg5/regon-search/internal/registry/providers/bir"
	"github.com/maciegg5/regon-search/internal/registry/service"
	"github.com/maciegg5/regon-search/internal/registry/tracer"
	httptransport "github.com/maciegg5/regon-search/internal/transport/http"
	"github.com/maciegg5/regon-search/pkg/platform/circuit"
	"github.com/maciegg5/regon-search/pkg/platform/middleware/metadata"
	request "github.com/maciegg5/regon-search/pkg/platform/middleware/request"
)

// main runs the lookup function as an Azure Functions custom handler: a plain
// HTTP server on FUNCTIONS_CUSTOMHANDLER_PORT that the host forwards requests to.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New().Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithLevel(cfg.SlogLevel())

	log.Info("initializing regon-search",
		"addr", cfg.ListenAddr(),
		"environment", cfg.Environment,
		"endpoint", cfg.Endpoint,
		"upstream_timeout", cfg.UpstreamTimeout,
	)

	router, err := buildRouter(cfg, log)
	if err != nil {
		log.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func buildRouter(cfg *config.Server, log *slog.Logger) (http.Handler, error) {
	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	registryMetrics := metrics.New()
	otel := tracer.NewOTel(tracer.WithProvider(bir.ProviderID))

	soap := adapters.NewSOAPAdapter(adapters.SOAPAdapterConfig{
		ID:       bir.ProviderID,
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.UpstreamTimeout,
		Breaker:  circuit.New(bir.ProviderID),
		Metrics:  registryMetrics,
		Tracer:   otel,
		Logger:   log,
	})
	client := bir.New(soap, cfg.APIKey, bir.WithLogger(log))

	lookups := service.New(client,
		service.WithMetrics(registryMetrics),
		service.WithTracer(otel),
		service.WithLogger(log),
	)

	probes := health.New(cfg.Environment)
	probes.RegisterCheck("registry", client.Health)

	return httptransport.NewRouter(httptransport.RouterDeps{
		Logger: log,
		Lookup: handler.New(lookups, log,
			handler.WithMetrics(registryMetrics),
			handler.WithExposeErrors(cfg.ExposeErrors),
		),
		Health:       probes,
		Metadata:     metadata.NewMiddleware(&metadata.Config{TrustedProxies: proxies}),
		Latency:      request.NewMetrics(),
		Metrics:      promhttp.Handler(),
		MaxBodyBytes: cfg.MaxBodyBytes,
	}), nil
}
