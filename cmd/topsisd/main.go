package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/Topsis/internal/api"
	"github.com/MikeSquared-Agency/Topsis/internal/artifacts"
	"github.com/MikeSquared-Agency/Topsis/internal/config"
	"github.com/MikeSquared-Agency/Topsis/internal/hermes"
	"github.com/MikeSquared-Agency/Topsis/internal/jobs"
	"github.com/MikeSquared-Agency/Topsis/internal/logging"
	"github.com/MikeSquared-Agency/Topsis/internal/mailer"
	"github.com/MikeSquared-Agency/Topsis/internal/mashup"
	"github.com/MikeSquared-Agency/Topsis/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		bootLogger.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	// Mail
	sender := mailer.New(cfg.Mail, cfg.MailTimeout())
	if !sender.Enabled() {
		logger.Info("mail disabled, results are returned inline only")
	}

	// Artifacts
	artifactStore, err := artifacts.New(ctx, cfg.Artifacts, cfg.PresignTTL())
	if err != nil {
		logger.Error("failed to open artifact store", "backend", cfg.Artifacts.Backend, "error", err)
		os.Exit(1)
	}

	// Mashup runner
	if err := mashup.CheckTools(cfg.Mashup.YtDlpBinary, cfg.Mashup.FfmpegBinary, cfg.Mashup.FfprobeBinary); err != nil {
		logger.Warn("mashup tools missing, queued jobs will fail", "error", err)
	}
	pipeline := mashup.NewPipeline(
		mashup.NewYtDlp(cfg.Mashup.YtDlpBinary),
		mashup.NewFFmpeg(cfg.Mashup.FfmpegBinary, cfg.Mashup.FfprobeBinary),
		mashup.Options{
			WorkDir:          cfg.Mashup.WorkDir,
			SearchMultiplier: cfg.Mashup.SearchMultiplier,
			MinDownloads:     mashup.ServiceMinDownloads,
		},
		logger,
	)
	runner := jobs.New(db, hermesClient, pipeline, artifactStore, sender, cfg, logger)
	if err := runner.Start(ctx); err != nil {
		logger.Error("failed to start mashup runner", "error", err)
		os.Exit(1)
	}
	defer runner.Stop()
	logger.Info("mashup runner started", "tick_interval", cfg.TickInterval())

	// API server
	router := api.NewRouter(db, hermesClient, sender, runner, cfg, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
