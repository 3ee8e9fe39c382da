package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

const defaultReportTimeout = 1500 * time.Millisecond

// Reporter pushes status updates from the worker process to the server's
// ingestion endpoint. Delivery is fire-and-forget: a failed report is logged
// and swallowed so it can never abort the extraction job.
type Reporter struct {
	client  *resty.Client
	baseURL string
	jobID   string
	logger  *zap.Logger
}

// NewReporter builds a Reporter for one job. baseURL is the server root, e.g.
// "http://localhost:8080".
func NewReporter(baseURL, jobID string, timeout time.Duration, logger *zap.Logger) *Reporter {
	if timeout <= 0 {
		timeout = defaultReportTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	return &Reporter{
		client:  client,
		baseURL: baseURL,
		jobID:   jobID,
		logger:  logger,
	}
}

// Report sends one update. Errors are swallowed; at-most-once, no retries.
func (r *Reporter) Report(ctx context.Context, stage string, percent int, status scrape.JobStatus) {
	if r == nil || r.baseURL == "" {
		return
	}
	update := Update{Stage: stage, Percent: percent, Status: status}
	url := fmt.Sprintf("%s/v1/jobs/%s/progress", r.baseURL, r.jobID)
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(update).
		Post(url)
	if err != nil {
		r.logger.Debug("progress report dropped",
			zap.String("job_id", r.jobID),
			zap.String("stage", stage),
			zap.Error(err),
		)
		return
	}
	if resp.StatusCode() >= 300 {
		r.logger.Debug("progress report rejected",
			zap.String("job_id", r.jobID),
			zap.Int("status", resp.StatusCode()),
		)
	}
}
