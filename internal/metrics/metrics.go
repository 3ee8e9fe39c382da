// Package metrics exposes Prometheus collectors for the analyzer service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Terminal outcome reasons recorded on the jobs counter.
const (
	ReasonSucceeded  = "succeeded"
	ReasonLaunch     = "launch_error"
	ReasonTimeout    = "timeout"
	ReasonWorkerExit = "worker_exit"
	ReasonEmpty      = "empty_extraction"
	ReasonSentiment  = "sentiment_error"
)

var (
	submissionsTotal *prometheus.CounterVec
	jobsTotal        *prometheus.CounterVec
	reviewsExtracted prometheus.Counter
	classifierErrors prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		submissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyzer_submissions_total",
				Help: "Total job submissions, labeled by admission result.",
			},
			[]string{"result"},
		)
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyzer_jobs_total",
				Help: "Total jobs reaching a terminal state, labeled by reason.",
			},
			[]string{"reason"},
		)
		reviewsExtracted = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "analyzer_reviews_extracted_total",
				Help: "Total review rows persisted across completed extractions.",
			},
		)
		classifierErrors = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "analyzer_classifier_errors_total",
				Help: "Total classifier calls resolving to a degraded error label.",
			},
		)
	})
}

// SubmissionAccepted counts an admitted submission.
func SubmissionAccepted() {
	if submissionsTotal != nil {
		submissionsTotal.WithLabelValues("accepted").Inc()
	}
}

// SubmissionRejected counts a submission refused at validation.
func SubmissionRejected() {
	if submissionsTotal != nil {
		submissionsTotal.WithLabelValues("rejected").Inc()
	}
}

// JobFinished counts a terminal transition.
func JobFinished(reason string) {
	if jobsTotal != nil {
		jobsTotal.WithLabelValues(reason).Inc()
	}
}

// ReviewsExtracted counts review rows observed by the sentiment pass.
func ReviewsExtracted(n int) {
	if reviewsExtracted != nil && n > 0 {
		reviewsExtracted.Add(float64(n))
	}
}

// ClassifierError counts a classifier call that produced an error label.
func ClassifierError() {
	if classifierErrors != nil {
		classifierErrors.Inc()
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
