// Package main is the entry point for the fxbridge conversion API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/fxbridge/business/conversion"
	"github.com/fd1az/fxbridge/internal/apm"
	"github.com/fd1az/fxbridge/internal/config"
	"github.com/fd1az/fxbridge/internal/health"
	"github.com/fd1az/fxbridge/internal/logger"
	"github.com/fd1az/fxbridge/internal/metrics"
	"github.com/fd1az/fxbridge/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fxbridge %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := logger.NewWriter(os.Stderr, logger.FileConfig{
		Path:       cfg.App.LogFile.Path,
		MaxSizeMB:  cfg.App.LogFile.MaxSizeMB,
		MaxBackups: cfg.App.LogFile.MaxBackups,
		MaxAgeDays: cfg.App.LogFile.MaxAgeDays,
		Compress:   cfg.App.LogFile.Compress,
	})
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting fxbridge",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Initialize observability if enabled
	if cfg.Telemetry.Enabled {
		shutdown, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		healthServer.Stop(stopCtx)
	}()

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	modules := []monolith.Module{
		&conversion.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mono.Router(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info(ctx, "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "error stopping http server", "error", err)
	}

	return nil
}

// startTelemetry installs tracing, the meter provider and the Prometheus
// endpoint. The returned func flushes and stops them.
func startTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	tel := cfg.Telemetry

	traceProvider, err := apm.NewTraceProvider(apm.Config{
		ServiceName: tel.ServiceName,
		Provider:    apm.Provider(tel.TraceProvider),
		Endpoint:    tel.OTLPEndpoint,
		Headers:     tel.OTLPHeaders,
		Insecure:    tel.OTLPInsecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(tel.ServiceName),
		metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
	}
	if tel.OTLPMetrics {
		opts = append(opts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(tel.OTLPEndpoint, tel.OTLPHeaders, tel.OTLPInsecure),
		))
	}

	meterProvider, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		traceProvider.Stop()
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	promServer := metrics.NewPrometheusServer(tel.PrometheusPort, nil)
	go func() {
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "prometheus server stopped", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", tel.PrometheusPort)

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		promServer.Shutdown(stopCtx)
		if err := meterProvider.Shutdown(stopCtx); err != nil {
			log.Warn(stopCtx, "meter provider shutdown", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(stopCtx, "trace provider shutdown", "error", err)
		}
	}, nil
}
