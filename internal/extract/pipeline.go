package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gabrzb/reviewradar/internal/progress"
	"github.com/gabrzb/reviewradar/internal/scrape"
)

// Progress milestones reported by the pipeline.
const (
	milestoneBrowser  = 10
	milestoneLoaded   = 30
	milestoneProduct  = 50
	milestoneReviews  = 70
	milestonePersist  = 90
	milestoneComplete = 100
)

// PageRenderer abstracts the browser so the pipeline can be exercised on
// canned HTML in tests.
type PageRenderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// Pipeline runs the whole extraction for one job inside the worker process:
// navigate, extract product and reviews, persist the artifacts, reporting
// coarse progress at each milestone.
type Pipeline struct {
	renderer PageRenderer
	sink     *Sink
	reporter *progress.Reporter
	logger   *zap.Logger
}

// NewPipeline wires the pipeline collaborators.
func NewPipeline(renderer PageRenderer, sink *Sink, reporter *progress.Reporter, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		renderer: renderer,
		sink:     sink,
		reporter: reporter,
		logger:   logger,
	}
}

// Run executes the pipeline. It returns an error only on total failure (page
// never retrieved, or artifacts not writable); per-field misses are expected
// and resolve to the unavailable sentinel.
func (p *Pipeline) Run(ctx context.Context, rawURL string) error {
	p.report(ctx, "Iniciando navegador", milestoneBrowser)

	p.report(ctx, "Carregando página", milestoneLoaded)
	html, err := p.renderer.Render(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("load page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	p.report(ctx, "Extraindo dados do produto", milestoneProduct)
	product := ExtractProduct(doc, rawURL)
	p.logger.Info("product extracted", zap.String("name", product.Name), zap.String("asin", product.ASIN))

	p.report(ctx, "Coletando comentários", milestoneReviews)
	reviews := ExtractReviews(doc)
	p.logger.Info("reviews extracted", zap.Int("count", len(reviews)))

	p.report(ctx, "Salvando dados", milestonePersist)
	if _, err := p.sink.WriteProduct(product); err != nil {
		return fmt.Errorf("persist product: %w", err)
	}
	if _, err := p.sink.WriteReviews(reviews); err != nil {
		return fmt.Errorf("persist reviews: %w", err)
	}

	p.report(ctx, "Concluído", milestoneComplete)
	return nil
}

func (p *Pipeline) report(ctx context.Context, stage string, percent int) {
	status := scrape.JobStatusRunning
	if p.reporter != nil {
		p.reporter.Report(ctx, stage, percent, status)
	}
	p.logger.Info("progress", zap.Int("percent", percent), zap.String("stage", stage))
}
