package extract

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrPageNotRetrieved indicates the browser never received the page document,
// as opposed to receiving a partial one.
var ErrPageNotRetrieved = errors.New("page could not be retrieved")

// RendererConfig controls the headless browser.
type RendererConfig struct {
	UserAgent   string
	NavTimeout  time.Duration
	SettleDelay time.Duration
}

// Renderer drives headless Chrome via chromedp to obtain a DOM snapshot of a
// product page. The extraction pipeline is single-threaded inside the worker,
// so one allocator and one tab at a time is enough.
type Renderer struct {
	cfg         RendererConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewRenderer creates a Renderer with the browser flags tuned for fast,
// unattended product-page loads (images disabled, small window, automation
// fingerprint reduced).
func NewRenderer(cfg RendererConfig, logger *zap.Logger) *Renderer {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 8 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 1500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1024, 768),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}
}

// Close tears down the browser allocator.
func (r *Renderer) Close() {
	if r == nil {
		return
	}
	r.allocCancel()
}

// Render navigates to rawURL and returns the rendered outer HTML. When the
// navigation wait times out but a document response was received, the partial
// DOM is returned rather than an error; callers are expected to extract what
// they can. ErrPageNotRetrieved is returned when no document ever arrived.
func (r *Renderer) Render(ctx context.Context, rawURL string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()

	var docReceived atomic.Bool
	chromedp.ListenTarget(tabCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if ok && resp.Type == network.ResourceTypeDocument {
			docReceived.Store(true)
		}
	})

	navCtx, cancelNav := context.WithTimeout(tabCtx, r.cfg.NavTimeout)
	defer cancelNav()
	stopForward := forwardCancel(ctx, cancelNav)
	defer stopForward()

	tasks := chromedp.Tasks{network.Enable()}
	if r.cfg.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(r.cfg.UserAgent))
	}
	tasks = append(tasks,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.cfg.SettleDelay),
	)
	navErr := chromedp.Run(navCtx, tasks)
	if navErr != nil && !errors.Is(navErr, context.DeadlineExceeded) {
		return "", fmt.Errorf("navigate %s: %w", rawURL, navErr)
	}
	if navErr != nil {
		if !docReceived.Load() {
			return "", fmt.Errorf("%w: %s", ErrPageNotRetrieved, rawURL)
		}
		// Timed out after the document arrived: use the partially loaded DOM.
		r.logger.Warn("navigation wait timed out, using partial page", zap.String("url", rawURL))
	}

	snapCtx, cancelSnap := context.WithTimeout(tabCtx, 5*time.Second)
	defer cancelSnap()

	var html string
	if err := chromedp.Run(snapCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot %s: %w", rawURL, err)
	}
	if html == "" {
		return "", fmt.Errorf("%w: empty snapshot for %s", ErrPageNotRetrieved, rawURL)
	}
	return html, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
