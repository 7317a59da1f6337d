package students

import (
	"context"
	"fmt"
	"time"

	"student-harvester/config"
	"student-harvester/utils"

	"github.com/chromedp/chromedp"
)

// BrowserSource drives the student table in a headless Chrome via chromedp
type BrowserSource struct {
	cfg    *config.Config
	logger *utils.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// nextControl is what the page reports about its next button
type nextControl struct {
	Found    bool `json:"found"`
	Disabled bool `json:"disabled"`
}

// OpenBrowserSource starts Chrome and loads the first page of the table.
// The caller must Close the source on every path.
func OpenBrowserSource(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*BrowserSource, error) {
	b := &BrowserSource{cfg: cfg, logger: logger}
	b.ctx, b.cancel = newBrowserContext(cfg.Headless)

	// the first Run allocates the browser; it must use the long-lived context
	// so that cancelling a per-call scope does not kill Chrome
	if err := chromedp.Run(b.ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: start chrome: %v", ErrRendererUnavailable, err)
	}

	logger.Info("Loading %s...", cfg.SourceLocation)
	runCtx, cancel := b.scope(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(cfg.SourceLocation)); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: navigate to %s: %v", ErrRendererUnavailable, cfg.SourceLocation, err)
	}
	return b, nil
}

// newBrowserContext creates a fresh chromedp context (one browser, one tab)
func newBrowserContext(headless bool) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}

// scope derives a context from the browser that also ends when ctx does
func (b *BrowserSource) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(b.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(b.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// WaitUntilReady waits for at least one visible table row
func (b *BrowserSource) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	runCtx, cancel := b.scope(ctx)
	defer cancel()
	runCtx, cancelTimeout := context.WithTimeout(runCtx, timeout)
	defer cancelTimeout()

	return chromedp.Run(runCtx, chromedp.WaitVisible(b.cfg.RowSelector, chromedp.ByQuery))
}

// CurrentRows reads the trimmed cell text of every row in a single evaluation
func (b *BrowserSource) CurrentRows(ctx context.Context) ([]Row, error) {
	runCtx, cancel := b.scope(ctx)
	defer cancel()

	var table [][]string
	err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(`
		(function() {
			var rows = [];
			document.querySelectorAll(%q).forEach(function(tr) {
				var cells = [];
				tr.querySelectorAll('td').forEach(function(td) {
					cells.push((td.innerText || '').trim());
				});
				rows.push(cells);
			});
			return rows;
		})()
	`, b.cfg.RowSelector), &table))
	if err != nil {
		return nil, fmt.Errorf("row JS failed: %w", err)
	}

	rows := make([]Row, 0, len(table))
	for _, cells := range table {
		rows = append(rows, TextRow(cells))
	}
	return rows, nil
}

// HasNextPage looks up the next control by XPath and checks its disabled state
func (b *BrowserSource) HasNextPage(ctx context.Context) (bool, error) {
	runCtx, cancel := b.scope(ctx)
	defer cancel()

	var ctl nextControl
	err := chromedp.Run(runCtx, chromedp.Evaluate(fmt.Sprintf(`
		(function() {
			var btn = document.evaluate(%q, document, null,
				XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
			if (!btn) return {found: false, disabled: false};
			return {found: true, disabled: btn.disabled === true || btn.hasAttribute('disabled')};
		})()
	`, b.cfg.NextButtonXPath), &ctl))
	if err != nil {
		return false, fmt.Errorf("next control JS failed: %w", err)
	}
	if !ctl.Found {
		return false, ErrNoNextControl
	}
	return !ctl.Disabled, nil
}

// NextPage clicks the next control
func (b *BrowserSource) NextPage(ctx context.Context) error {
	runCtx, cancel := b.scope(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(b.cfg.NextButtonXPath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("click next failed: %w", err)
	}
	return nil
}

// Close shuts the browser down
func (b *BrowserSource) Close() error {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	return nil
}
