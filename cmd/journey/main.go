// Package main is the entry point for the journey server. It wires all
// dependencies together and starts the HTTP server.
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

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rulesascode/journey/internal/config"
	"github.com/rulesascode/journey/internal/definition"
	"github.com/rulesascode/journey/internal/journey"
	"github.com/rulesascode/journey/internal/observability"
	"github.com/rulesascode/journey/internal/openfisca"
	"github.com/rulesascode/journey/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "journey", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// OpenFisca client and optional startup probe of the instance.
	client := openfisca.NewClient(openfisca.Options{
		BaseURI:                 cfg.OpenFisca.BaseURI,
		Authorization:           cfg.OpenFisca.Authorization(),
		Timeout:                 cfg.OpenFisca.Timeout,
		BreakerFailureThreshold: cfg.OpenFisca.CircuitBreaker.FailureThreshold,
		BreakerSuccessThreshold: cfg.OpenFisca.CircuitBreaker.SuccessThreshold,
		BreakerCooldown:         cfg.OpenFisca.CircuitBreaker.Cooldown,
	}, logger)

	var profile *openfisca.InstanceProfile
	if cfg.OpenFisca.ProbeSpec {
		profile = openfisca.Probe(ctx, client, logger)
	}

	// Load journey definitions and validate. Validation errors are logged
	// but not fatal: misconfigured journeys degrade by omission at runtime.
	loader := definition.NewLoader()
	defs, err := loader.LoadAll(cfg.Definitions.Directories)
	if err != nil {
		logger.Error("definition loading failed", zap.Error(err))
		return 1
	}

	validator := definition.NewValidator()
	for _, ve := range validator.Validate(defs, profile) {
		logger.Warn("definition validation error", zap.String("error", ve.Error()))
	}

	registry := definition.NewRegistry(defs)
	metrics.SetDefinitionsLoaded(float64(registry.Count()))

	service := journey.NewService(registry, client, metrics, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:  cfg,
		Service: service,
		Metrics: metrics,
		Logger:  logger,
		Ready: observability.ReadinessChecks{
			DefinitionsLoaded: func() bool { return registry.Count() > 0 },
			BreakerClosed:     func() bool { return client.BreakerState() != openfisca.BreakerOpen },
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("journeys", registry.Count()),
		zap.String("openfisca", client.BaseURI()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}
