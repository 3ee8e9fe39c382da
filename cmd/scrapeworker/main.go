// Package main implements the per-job extraction worker. It is launched by
// the server as `scrapeworker <product-url> <job-id>`, renders the page,
// writes the two CSV artifacts, and exits 0 on success or 1 on any
// unrecoverable failure with a diagnostic on stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/config"
	"github.com/gabrzb/reviewradar/internal/extract"
	"github.com/gabrzb/reviewradar/internal/logging"
	"github.com/gabrzb/reviewradar/internal/progress"
	"github.com/gabrzb/reviewradar/internal/scrape"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: scrapeworker <product-url> <job-id>")
		return 1
	}
	productURL := os.Args[1]
	jobID := os.Args[2]

	_ = godotenv.Load()

	// Configuration arrives through the environment, set by the supervisor.
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("job_id", jobID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporter := progress.NewReporter(cfg.Worker.ReportBaseURL, jobID, cfg.ReportTimeout(), logger)

	sink, err := extract.NewSink(cfg.Worker.OutputDir, logger)
	if err != nil {
		return fail(ctx, reporter, logger, fmt.Errorf("init sink: %w", err))
	}

	renderer := extract.NewRenderer(extract.RendererConfig{
		UserAgent:   cfg.Headless.UserAgent,
		NavTimeout:  cfg.NavTimeout(),
		SettleDelay: cfg.SettleDelay(),
	}, logger)
	defer renderer.Close()

	pipeline := extract.NewPipeline(renderer, sink, reporter, logger)
	if err := pipeline.Run(ctx, productURL); err != nil {
		return fail(ctx, reporter, logger, err)
	}
	return 0
}

// fail reports the error best-effort, writes the diagnostic to stderr for the
// supervisor to capture, and maps to the non-zero exit contract.
func fail(ctx context.Context, reporter *progress.Reporter, logger *zap.Logger, err error) int {
	logger.Error("extraction failed", zap.Error(err))
	reporter.Report(ctx, fmt.Sprintf("Erro: %v", err), 0, scrape.JobStatusRunning)
	fmt.Fprintf(os.Stderr, "extraction failed: %v\n", err)
	return 1
}
