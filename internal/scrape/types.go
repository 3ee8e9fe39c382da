// Package scrape defines core types shared by the server and the worker.
package scrape

import "time"

// Unavailable marks a field no extraction strategy could resolve. Partial
// records are expected; a field is never omitted, only marked unavailable.
const Unavailable = "N/A"

// MaxReviews bounds the candidate set per extraction run.
const MaxReviews = 10

// Field length bounds applied during extraction.
const (
	MaxProductNameLen = 200
	MaxTitleLen       = 100
	MaxReviewTextLen  = 300
	MaxAuthorLen      = 50
	MaxDateLen        = 30
)

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values held in the registry.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is the registry record visible to pollers.
type Job struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Stage     string    `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductRecord holds the flat product attributes extracted from the page.
// Every field defaults to Unavailable.
type ProductRecord struct {
	Name         string `json:"name"`
	Price        string `json:"price"`
	Rating       string `json:"rating"`
	ReviewsCount string `json:"reviews_count"`
	Description  string `json:"description"`
	ASIN         string `json:"asin"`
	ImageURL     string `json:"image_url"`
}

// NewProductRecord returns a record with every field unavailable.
func NewProductRecord() ProductRecord {
	return ProductRecord{
		Name:         Unavailable,
		Price:        Unavailable,
		Rating:       Unavailable,
		ReviewsCount: Unavailable,
		Description:  Unavailable,
		ASIN:         Unavailable,
		ImageURL:     Unavailable,
	}
}

// VerifiedFlag is the tri-state verified-purchase marker.
type VerifiedFlag string

// Verified purchase values carried in the reviews table.
const (
	VerifiedYes     VerifiedFlag = "Sim"
	VerifiedNo      VerifiedFlag = "Não"
	VerifiedUnknown VerifiedFlag = Unavailable
)

// ReviewRecord holds one extracted review. Identity within a run is the
// (Title, Text) pair, used for deduplication across selector strategies.
type ReviewRecord struct {
	Title     string       `json:"review_title"`
	Rating    string       `json:"rating"`
	Text      string       `json:"review_text"`
	Author    string       `json:"author"`
	Date      string       `json:"date"`
	Verified  VerifiedFlag `json:"verified_purchase"`
	Sentiment string       `json:"sentiment,omitempty"`
}

// Informative reports whether the record carries enough content to keep.
// A rating-only or author-only candidate is discarded; either a title or a
// body text is required.
func (r ReviewRecord) Informative() bool {
	return r.Title != Unavailable || r.Text != Unavailable
}
