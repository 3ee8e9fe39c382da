package sentiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/extract"
	"github.com/gabrzb/reviewradar/internal/metrics"
)

// Annotate runs the sentiment pass over a reviews artifact: every row is
// classified exactly once and the file is rewritten with the sentiment
// column appended. Per-row classifier failures downgrade that row's label;
// only I/O problems with the artifact itself are returned as errors.
func Annotate(ctx context.Context, classifier Classifier, reviewsPath string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	records, err := extract.ReadReviews(reviewsPath)
	if err != nil {
		return fmt.Errorf("load reviews for sentiment pass: %w", err)
	}
	metrics.ReviewsExtracted(len(records))

	for i := range records {
		label := classifier.Classify(ctx, records[i].Text)
		records[i].Sentiment = string(label)
		if label == LabelError || label == LabelAPIError {
			logger.Warn("review classification degraded",
				zap.Int("row", i),
				zap.String("label", string(label)),
			)
		}
	}

	if err := extract.RewriteReviews(reviewsPath, records); err != nil {
		return fmt.Errorf("rewrite reviews artifact: %w", err)
	}
	logger.Info("sentiment pass complete", zap.Int("rows", len(records)))
	return nil
}
