// Package progress holds the job registry the server owns and the best-effort
// reporter workers use to push status updates into it across the process
// boundary.
package progress

import (
	"errors"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

// Update is one status report for a job. It carries whatever the sender knew
// at emission time; delivery is at-most-once and arrival order is not
// guaranteed.
type Update struct {
	Stage   string           `json:"stage"`
	Percent int              `json:"progress"`
	Status  scrape.JobStatus `json:"status"`
}

// Validate performs coarse validation on Update payloads.
func (u Update) Validate() error {
	if u.Percent < 0 || u.Percent > 100 {
		return errors.New("progress must be between 0 and 100")
	}
	switch u.Status {
	case scrape.JobStatusQueued, scrape.JobStatusRunning, scrape.JobStatusSucceeded, scrape.JobStatusFailed:
		return nil
	default:
		return errors.New("unknown status")
	}
}
