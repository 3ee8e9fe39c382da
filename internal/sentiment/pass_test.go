package sentiment

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gabrzb/reviewradar/internal/extract"
	"github.com/gabrzb/reviewradar/internal/scrape"
)

type stubClassifier struct {
	labels map[string]Label
}

func (c *stubClassifier) Classify(_ context.Context, text string) Label {
	if label, ok := c.labels[text]; ok {
		return label
	}
	return LabelNeutral
}

func writeReviewsArtifact(t *testing.T, records []scrape.ReviewRecord) string {
	t.Helper()
	sink, err := extract.NewSink(t.TempDir(), nil)
	require.NoError(t, err)
	path, err := sink.WriteReviews(records)
	require.NoError(t, err)
	return path
}

func TestAnnotateLabelsEveryRow(t *testing.T) {
	t.Parallel()

	path := writeReviewsArtifact(t, []scrape.ReviewRecord{
		{Title: "Bom", Rating: "5.0", Text: "Produto excelente", Author: "João", Date: "hoje", Verified: scrape.VerifiedYes},
		{Title: "Ruim", Rating: "1.0", Text: "Quebrou no primeiro dia", Author: "Maria", Date: "ontem", Verified: scrape.VerifiedNo},
		{Title: "Sem texto", Rating: "3.0", Text: scrape.Unavailable, Author: scrape.Unavailable, Date: scrape.Unavailable, Verified: scrape.VerifiedUnknown},
	})

	classifier := &stubClassifier{labels: map[string]Label{
		"Produto excelente":       LabelPositive,
		"Quebrou no primeiro dia": LabelNegative,
	}}
	require.NoError(t, Annotate(context.Background(), classifier, path, nil))

	got, err := extract.ReadReviews(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "POSITIVE", got[0].Sentiment)
	require.Equal(t, "NEGATIVE", got[1].Sentiment)
	require.Equal(t, "NEUTRAL", got[2].Sentiment)
}

func TestAnnotateDegradedRowsKeepErrorLabel(t *testing.T) {
	t.Parallel()

	path := writeReviewsArtifact(t, []scrape.ReviewRecord{
		{Title: "Bom", Rating: "5.0", Text: "texto qualquer", Author: "A", Date: "hoje", Verified: scrape.VerifiedYes},
	})

	classifier := &stubClassifier{labels: map[string]Label{
		"texto qualquer": LabelAPIError,
	}}
	require.NoError(t, Annotate(context.Background(), classifier, path, nil))

	got, err := extract.ReadReviews(path)
	require.NoError(t, err)
	require.Equal(t, "API_ERROR", got[0].Sentiment)
}

func TestAnnotateEmptyArtifact(t *testing.T) {
	t.Parallel()

	path := writeReviewsArtifact(t, nil)
	require.NoError(t, Annotate(context.Background(), &stubClassifier{}, path, nil))

	got, err := extract.ReadReviews(path)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestAnnotateMissingArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), extract.ReviewsFileName)
	err := Annotate(context.Background(), &stubClassifier{}, path, nil)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "sentiment pass"))
}
