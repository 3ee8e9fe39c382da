// Package sentiment annotates extracted reviews with labels from a hosted
// text-classification API.
package sentiment

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/metrics"
	"github.com/gabrzb/reviewradar/internal/scrape"
)

// Label is the classification outcome for one review.
type Label string

// Classification labels. The two error labels are distinguishable so an API
// rejection can be told apart from a transport failure when reading the
// artifacts.
const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
	LabelNeutral  Label = "NEUTRAL"
	LabelAPIError Label = "API_ERROR"
	LabelError    Label = "ERROR"
)

// maxInputLen bounds the text sent to the inference API, in runes so accented
// review text is never cut mid-character.
const maxInputLen = 512

// Classifier labels a single text. Implementations never return an error;
// failures fold into the error labels so a bad row can never fail the pass.
type Classifier interface {
	Classify(ctx context.Context, text string) Label
}

// HFClassifier calls a HuggingFace-style inference endpoint.
type HFClassifier struct {
	client   *resty.Client
	endpoint string
	logger   *zap.Logger
}

// NewHFClassifier builds a classifier for the given endpoint. apiKey may be
// empty for unauthenticated endpoints.
func NewHFClassifier(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *HFClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &HFClassifier{
		client:   client,
		endpoint: endpoint,
		logger:   logger,
	}
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify labels text. Empty or unavailable text short-circuits to neutral
// without a network call.
func (c *HFClassifier) Classify(ctx context.Context, text string) Label {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == scrape.Unavailable {
		return LabelNeutral
	}
	if runes := []rune(trimmed); len(runes) > maxInputLen {
		trimmed = string(runes[:maxInputLen])
	}

	var result [][]labelScore
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(inferenceRequest{Inputs: trimmed}).
		SetResult(&result).
		Post(c.endpoint)
	if err != nil {
		c.logger.Warn("classifier request failed", zap.Error(err))
		metrics.ClassifierError()
		return LabelError
	}
	if resp.StatusCode() != 200 {
		c.logger.Warn("classifier rejected request",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncateForLog(resp.String())),
		)
		metrics.ClassifierError()
		return LabelAPIError
	}
	return mapScores(result)
}

// mapScores picks the top-scored label and maps it onto our label set.
// Anything unrecognized is neutral.
func mapScores(result [][]labelScore) Label {
	if len(result) == 0 || len(result[0]) == 0 {
		return LabelNeutral
	}
	scores := append([]labelScore(nil), result[0]...)
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	label := strings.ToUpper(scores[0].Label)
	switch {
	case strings.Contains(label, "POSITIVE"):
		return LabelPositive
	case strings.Contains(label, "NEGATIVE"):
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func truncateForLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max]
}
