// Package main is the entry point for the will-it-rain API.
//
// It loads configuration, wires the OpenWeather client, rain service and
// HTTP handler into the core server, and serves requests either as a
// standard HTTP server (local, containers) or, inside AWS Lambda, as an
// API Gateway v2 HTTP handler over the same router.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Zidanesyah/willItRain/internal/api/handlers"
	"github.com/Zidanesyah/willItRain/internal/config"
	"github.com/Zidanesyah/willItRain/internal/core"
	"github.com/Zidanesyah/willItRain/internal/external"
	"github.com/Zidanesyah/willItRain/internal/forecasts"
	"github.com/Zidanesyah/willItRain/internal/metrics"
	"github.com/Zidanesyah/willItRain/internal/queue"
)

// metricsFlushInterval is how often buffered datums are sent in HTTP mode.
const metricsFlushInterval = 30 * time.Second

var (
	_ forecasts.VerdictPublisher = (*queue.VerdictPublisher)(nil)
	_ core.MetricsCollector      = (*metrics.CloudWatchCollector)(nil)
	_ external.FailureRecorder   = (*metrics.CloudWatchCollector)(nil)
	_ queue.PublishRecorder      = (*metrics.CloudWatchCollector)(nil)
	_ core.HealthProbe           = (*external.OpenWeatherClient)(nil)
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired server and the optional metrics collector whose
// lifecycle depends on the serving mode.
type app struct {
	srv       *core.Server
	collector *metrics.CloudWatchCollector
}

func run() error {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("will-it-rain API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	var awsCfg aws.Config
	if needsAWS(cfg) {
		awsCfg, err = loadAWSConfig(context.Background(), cfg.AWS)
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
	}

	a, err := buildApp(cfg, logger, awsCfg)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		return runLambda(a, logger)
	}
	return runHTTPServer(a, cfg, logger)
}

// buildApp wires client -> service -> handler -> server. AWS clients are
// only constructed for the features that are enabled in cfg.
func buildApp(cfg *config.Config, logger *slog.Logger, awsCfg aws.Config) (*app, error) {
	a := &app{}

	clientOpts := []external.BaseClientOption{
		external.WithMaxInFlight(cfg.OpenWeather.MaxInFlight),
	}
	if cfg.Observability.MetricsEnabled {
		a.collector = metrics.NewCloudWatchCollector(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			logger,
		)
		clientOpts = append(clientOpts, external.WithFailureRecorder(a.collector))
	}

	retry := external.DefaultRetryPolicy()
	retry.MaxRetries = cfg.OpenWeather.MaxRetries

	owClient := external.NewOpenWeatherClient(
		&http.Client{Timeout: cfg.OpenWeather.Timeout},
		external.OpenWeatherClientConfig{
			APIKey:    cfg.OpenWeather.APIKey,
			BaseURL:   cfg.OpenWeather.BaseURL,
			UserAgent: cfg.Build.UserAgent(),
			Logger:    logger,
		},
		retry,
		clientOpts...,
	)

	var svcOpts []forecasts.ServiceOption
	if cfg.AWS.VerdictQueueURL != "" {
		var pubOpts []queue.PublisherOption
		if a.collector != nil {
			pubOpts = append(pubOpts, queue.WithPublishRecorder(a.collector))
		}
		publisher := queue.NewVerdictPublisher(sqs.NewFromConfig(awsCfg), cfg.AWS.VerdictQueueURL, logger, pubOpts...)
		svcOpts = append(svcOpts, forecasts.WithVerdictPublisher(publisher))
	}

	svc := forecasts.NewService(owClient, owClient, logger, svcOpts...)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	rainHandler := handlers.NewRainHandler(svc, srv.Validator, logger)

	if a.collector != nil {
		srv.Metrics = a.collector
	}
	srv.HealthProbes = []core.HealthProbe{owClient}
	srv.APIRouteRegistrars = append(srv.APIRouteRegistrars, rainHandler.RegisterRoutes)

	if err := srv.MountRoutes(); err != nil {
		return nil, fmt.Errorf("mounting routes: %w", err)
	}

	a.srv = srv
	return a, nil
}

func needsAWS(cfg *config.Config) bool {
	return cfg.Observability.MetricsEnabled || cfg.AWS.VerdictQueueURL != ""
}

// loadAWSConfig loads the default credential chain for the configured
// region. A non-empty EndpointURL points every client at LocalStack.
func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Region))
	if err != nil {
		return aws.Config{}, err
	}
	if c.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(c.EndpointURL)
	}
	return awsCfg, nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(a *app, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsDone := make(chan struct{})
	if a.collector != nil {
		go func() {
			a.collector.Run(ctx, metricsFlushInterval)
			close(metricsDone)
		}()
	} else {
		close(metricsDone)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			stop()
			<-metricsDone
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	stop()
	<-metricsDone

	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger for the given level and format.
// Unknown levels fall back to info, unknown formats to JSON.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
