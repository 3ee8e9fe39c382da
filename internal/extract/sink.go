package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/scrape"
)

// Artifact file names, shared between the worker (writer) and the server
// (sentiment pass and completion reconciliation).
const (
	ProductFileName = "amazon_product.csv"
	ReviewsFileName = "amazon_reviews.csv"
)

var productHeader = []string{"name", "price", "rating", "reviews_count", "description", "asin", "image_url"}

var reviewsHeader = []string{"review_title", "rating", "review_text", "author", "date", "verified_purchase"}

var reviewsHeaderWithSentiment = append(append([]string{}, reviewsHeader...), "sentiment")

// Sink writes the two tabular artifacts for a run. Values are cleaned on the
// way out so the files open cleanly in spreadsheet tools.
type Sink struct {
	dir    string
	logger *zap.Logger
}

// NewSink returns a sink rooted at dir, creating it if needed.
func NewSink(dir string, logger *zap.Logger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{dir: dir, logger: logger}, nil
}

// ProductPath returns the product artifact location under dir.
func ProductPath(dir string) string { return filepath.Join(dir, ProductFileName) }

// ReviewsPath returns the reviews artifact location under dir.
func ReviewsPath(dir string) string { return filepath.Join(dir, ReviewsFileName) }

// WriteProduct writes the single product row and returns the file path.
func (s *Sink) WriteProduct(record scrape.ProductRecord) (string, error) {
	row := []string{
		CleanText(record.Name),
		CleanText(record.Price),
		CleanText(record.Rating),
		CleanText(record.ReviewsCount),
		CleanText(record.Description),
		record.ASIN,
		record.ImageURL,
	}
	path := ProductPath(s.dir)
	if err := writeCSV(path, productHeader, [][]string{row}); err != nil {
		return "", err
	}
	s.logger.Info("product artifact written", zap.String("path", path))
	return path, nil
}

// WriteReviews writes zero or more review rows and returns the file path.
// The sentiment column is only present when at least one record carries a
// label, which happens after the server-side sentiment pass.
func (s *Sink) WriteReviews(records []scrape.ReviewRecord) (string, error) {
	withSentiment := false
	for _, r := range records {
		if r.Sentiment != "" {
			withSentiment = true
			break
		}
	}
	header := reviewsHeader
	if withSentiment {
		header = reviewsHeaderWithSentiment
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			CleanText(r.Title),
			CleanText(r.Rating),
			CleanText(r.Text),
			CleanText(r.Author),
			CleanText(r.Date),
			string(r.Verified),
		}
		if withSentiment {
			row = append(row, r.Sentiment)
		}
		rows = append(rows, row)
	}
	path := ReviewsPath(s.dir)
	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}
	s.logger.Info("reviews artifact written", zap.String("path", path), zap.Int("rows", len(rows)))
	return path, nil
}

// RewriteReviews replaces a reviews artifact in place with the given records,
// always carrying the sentiment column. Used by the server-side sentiment pass.
func RewriteReviews(path string, records []scrape.ReviewRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			CleanText(r.Title),
			CleanText(r.Rating),
			CleanText(r.Text),
			CleanText(r.Author),
			CleanText(r.Date),
			string(r.Verified),
			r.Sentiment,
		})
	}
	return writeCSV(path, reviewsHeaderWithSentiment, rows)
}

// ReadReviews loads review rows back from a reviews artifact, tolerating both
// the pre- and post-sentiment column sets.
func ReadReviews(path string) ([]scrape.ReviewRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reviews artifact: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read reviews artifact: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]scrape.ReviewRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(reviewsHeader) {
			return nil, fmt.Errorf("reviews artifact row has %d columns, want at least %d", len(row), len(reviewsHeader))
		}
		record := scrape.ReviewRecord{
			Title:    row[0],
			Rating:   row[1],
			Text:     row[2],
			Author:   row[3],
			Date:     row[4],
			Verified: scrape.VerifiedFlag(row[5]),
		}
		if len(row) > len(reviewsHeader) {
			record.Sentiment = row[6]
		}
		records = append(records, record)
	}
	return records, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
