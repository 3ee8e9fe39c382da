package progress

import (
	"errors"
	"sync"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

// ErrNotFound is returned when a job ID is unknown to the registry.
var ErrNotFound = errors.New("job not found")

// Store is the in-memory job registry. It is safe for concurrent use by the
// request handlers and the progress-ingestion path. Writes are last-write-wins:
// the store records whatever arrives last and does not clamp percent
// regressions from out-of-order reports. Enforcing forward-only transitions is
// the supervisor's responsibility, not the store's; the one exception is
// PutIfNotTerminal, which protects recorded terminal states from late reports.
//
// Records are never evicted for the lifetime of the process; this deployment
// is single-node and short-lived.
type Store struct {
	mu    sync.RWMutex
	clock scrape.Clock
	jobs  map[string]scrape.Job
}

// NewStore constructs an empty registry.
func NewStore(clock scrape.Clock) *Store {
	return &Store{
		clock: clock,
		jobs:  make(map[string]scrape.Job),
	}
}

// Put upserts the record for jobID. The URL is kept from the first write for a
// given job so later updates do not have to carry it.
func (s *Store) Put(jobID string, status scrape.JobStatus, percent int, stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		job = scrape.Job{ID: jobID}
	}
	job.Status = status
	job.Progress = percent
	job.Stage = stage
	job.UpdatedAt = s.clock.Now()
	s.jobs[jobID] = job
}

// PutIfNotTerminal upserts like Put but refuses the write when the job is
// unknown or already in a terminal state. Check and write happen under one
// lock, so a late worker report can never interleave with the supervisor's
// terminal write and resurrect a finished job.
func (s *Store) PutIfNotTerminal(jobID string, status scrape.JobStatus, percent int, stage string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false
	}
	job.Status = status
	job.Progress = percent
	job.Stage = stage
	job.UpdatedAt = s.clock.Now()
	s.jobs[jobID] = job
	return true
}

// SetURL records the submitted URL on the job without touching its status.
func (s *Store) SetURL(jobID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		job = scrape.Job{ID: jobID}
	}
	job.URL = url
	s.jobs[jobID] = job
}

// Get fetches the current record for jobID.
func (s *Store) Get(jobID string) (scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scrape.Job{}, ErrNotFound
	}
	return job, nil
}

// Len reports the number of registered jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
