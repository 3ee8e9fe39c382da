// Package supervisor owns the scrape-job lifecycle: registration, worker
// process launch, wall-clock timeout enforcement, exit interpretation, the
// sentiment pass, and terminal state recording.
package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/extract"
	"github.com/gabrzb/reviewradar/internal/metrics"
	"github.com/gabrzb/reviewradar/internal/progress"
	"github.com/gabrzb/reviewradar/internal/scrape"
	"github.com/gabrzb/reviewradar/internal/sentiment"
)

// ErrLaunch indicates the worker process could not be started.
var ErrLaunch = errors.New("worker launch failed")

// Config controls supervision behavior.
type Config struct {
	WorkerBin     string
	WorkerTimeout time.Duration
	OutputDir     string
	ReportBaseURL string
}

// Supervisor validates submissions, spawns one worker process per job, and
// records every transition in the registry. Jobs run decoupled from the
// submitting request; callers poll the registry for completion.
type Supervisor struct {
	cfg        Config
	store      *progress.Store
	classifier sentiment.Classifier
	idGen      scrape.IDGenerator
	clock      scrape.Clock
	logger     *zap.Logger

	// newCommand builds the worker command; replaced in tests.
	newCommand func(url, jobID string) *exec.Cmd
}

// New constructs a Supervisor.
func New(
	cfg Config,
	store *progress.Store,
	classifier sentiment.Classifier,
	idGen scrape.IDGenerator,
	clock scrape.Clock,
	logger *zap.Logger,
) *Supervisor {
	if cfg.WorkerTimeout <= 0 {
		cfg.WorkerTimeout = 300 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor{
		cfg:        cfg,
		store:      store,
		classifier: classifier,
		idGen:      idGen,
		clock:      clock,
		logger:     logger,
	}
	s.newCommand = s.workerCommand
	return s
}

// Submit validates rawURL, registers a queued job, and starts the worker.
// Validation and launch failures are returned synchronously; a job that
// failed to launch is recorded as failed before the error is returned.
// The call never blocks on job completion.
func (s *Supervisor) Submit(_ context.Context, rawURL string) (string, error) {
	if _, err := scrape.ValidateProductURL(rawURL); err != nil {
		metrics.SubmissionRejected()
		return "", err
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}

	s.store.SetURL(jobID, rawURL)
	s.store.Put(jobID, scrape.JobStatusQueued, 0, "Aguardando início")
	metrics.SubmissionAccepted()

	launchedAt := s.clock.Now()
	cmd := s.newCommand(rawURL, jobID)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		s.fail(jobID, "failed to start worker process", metrics.ReasonLaunch)
		return jobID, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	s.store.Put(jobID, scrape.JobStatusRunning, 5, "Processo iniciado")

	go s.superviseRun(jobID, cmd, &stderr, launchedAt)
	return jobID, nil
}

// workerCommand builds the real worker invocation. The worker runs in its own
// process group so a timeout kill reaches any children it spawned (the
// browser, most importantly).
func (s *Supervisor) workerCommand(url, jobID string) *exec.Cmd {
	cmd := exec.Command(s.cfg.WorkerBin, url, jobID)
	cmd.Env = append(os.Environ(),
		"ANALYZER_WORKER_OUTPUT_DIR="+s.cfg.OutputDir,
		"ANALYZER_WORKER_REPORT_BASE_URL="+s.cfg.ReportBaseURL,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

func (s *Supervisor) superviseRun(jobID string, cmd *exec.Cmd, stderr *bytes.Buffer, launchedAt time.Time) {
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-time.After(s.cfg.WorkerTimeout):
		s.killProcessGroup(cmd)
		<-waitCh
		// A timeout kill is authoritative: file evidence is not consulted,
		// and any report the dying worker still gets out is stale.
		s.fail(jobID, fmt.Sprintf("worker timed out after %s and was killed", s.cfg.WorkerTimeout), metrics.ReasonTimeout)
		return
	}

	if waitErr != nil {
		s.handleNonZeroExit(jobID, waitErr, stderr, launchedAt)
		return
	}
	s.finish(jobID, launchedAt)
}

// handleNonZeroExit records the failure, unless fresh artifacts show the run
// actually completed and only its terminal report was lost. The artifact check
// is gated on the job still being non-terminal and on both files having been
// written after launch, so leftovers from a previous run never count.
func (s *Supervisor) handleNonZeroExit(jobID string, waitErr error, stderr *bytes.Buffer, launchedAt time.Time) {
	if job, err := s.store.Get(jobID); err == nil && !job.Status.Terminal() && s.artifactsFresh(launchedAt) {
		s.logger.Warn("worker exited non-zero but fresh artifacts exist, reconciling as success",
			zap.String("job_id", jobID),
			zap.Error(waitErr),
		)
		s.finish(jobID, launchedAt)
		return
	}

	reason := fmt.Sprintf("worker failed: %v", waitErr)
	if tail := stderrTail(stderr); tail != "" {
		reason = fmt.Sprintf("%s: %s", reason, tail)
	}
	s.fail(jobID, reason, metrics.ReasonWorkerExit)
}

// finish runs the sentiment pass over the persisted rows and marks the job
// succeeded. Zero-exit runs without fresh artifacts are failed: the worker
// claims success but produced no usable data.
func (s *Supervisor) finish(jobID string, launchedAt time.Time) {
	if !s.artifactsFresh(launchedAt) {
		s.fail(jobID, "worker produced no usable extraction output", metrics.ReasonEmpty)
		return
	}

	s.store.Put(jobID, scrape.JobStatusRunning, 95, "Analisando sentimentos")
	ctx := context.Background()
	if err := sentiment.Annotate(ctx, s.classifier, extract.ReviewsPath(s.cfg.OutputDir), s.logger); err != nil {
		s.fail(jobID, fmt.Sprintf("sentiment analysis failed: %v", err), metrics.ReasonSentiment)
		return
	}

	s.store.Put(jobID, scrape.JobStatusSucceeded, 100, "Concluído")
	metrics.JobFinished(metrics.ReasonSucceeded)
	s.logger.Info("job succeeded", zap.String("job_id", jobID))
}

func (s *Supervisor) fail(jobID, reason, metricReason string) {
	// The reason is surfaced to pollers through the stage text; there is no
	// separate error channel on the job record.
	s.store.Put(jobID, scrape.JobStatusFailed, 0, reason)
	metrics.JobFinished(metricReason)
	s.logger.Error("job failed", zap.String("job_id", jobID), zap.String("reason", reason))
}

// artifactsFresh reports whether both output artifacts exist and were
// modified after the job launched.
func (s *Supervisor) artifactsFresh(launchedAt time.Time) bool {
	for _, path := range []string{
		extract.ProductPath(s.cfg.OutputDir),
		extract.ReviewsPath(s.cfg.OutputDir),
	} {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().Before(launchedAt) {
			return false
		}
	}
	return true
}

func (s *Supervisor) killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		s.logger.Warn("process group kill failed, killing process directly",
			zap.Int("pid", pid),
			zap.Error(err),
		)
		if err := cmd.Process.Kill(); err != nil {
			s.logger.Error("process kill failed", zap.Int("pid", pid), zap.Error(err))
		}
	}
}

func stderrTail(buf *bytes.Buffer) string {
	const maxTail = 300
	text := strings.TrimSpace(buf.String())
	if len(text) > maxTail {
		text = text[len(text)-maxTail:]
	}
	return strings.ReplaceAll(text, "\n", " | ")
}
