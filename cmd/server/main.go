// Package main wires together the analyzer orchestration service.
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
	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/api"
	"github.com/gabrzb/reviewradar/internal/clock/system"
	"github.com/gabrzb/reviewradar/internal/config"
	"github.com/gabrzb/reviewradar/internal/id/uuid"
	"github.com/gabrzb/reviewradar/internal/logging"
	"github.com/gabrzb/reviewradar/internal/metrics"
	"github.com/gabrzb/reviewradar/internal/progress"
	"github.com/gabrzb/reviewradar/internal/sentiment"
	"github.com/gabrzb/reviewradar/internal/supervisor"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Optional .env for local runs; secrets like the classifier key live there.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clock := system.New()
	store := progress.NewStore(clock)
	classifier := sentiment.NewHFClassifier(
		cfg.Classifier.Endpoint,
		cfg.Classifier.APIKey,
		cfg.ClassifierTimeout(),
		logger.Named("classifier"),
	)
	sup := supervisor.New(
		supervisor.Config{
			WorkerBin:     cfg.Worker.Bin,
			WorkerTimeout: cfg.WorkerTimeout(),
			OutputDir:     cfg.Worker.OutputDir,
			ReportBaseURL: cfg.Worker.ReportBaseURL,
		},
		store,
		classifier,
		uuid.New(),
		clock,
		logger.Named("supervisor"),
	)
	server := api.NewServer(store, sup, logger.Named("api"))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
