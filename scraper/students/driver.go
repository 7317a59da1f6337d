package students

import (
	"context"
	"errors"
	"fmt"
	"time"

	"student-harvester/models"
	"student-harvester/services"
	"student-harvester/utils"
)

var (
	// ErrNoNextControl is returned by HasNextPage when the page has no next control at all
	ErrNoNextControl = errors.New("no next page control")
	// ErrMaxPagesExceeded is returned by Run when the source keeps offering pages past the ceiling
	ErrMaxPagesExceeded = errors.New("exceeded max pages")
	// ErrRendererUnavailable wraps failures to start or load the page renderer
	ErrRendererUnavailable = errors.New("page renderer unavailable")
)

// PageSource is a paged table the driver can read and advance.
// It is stateful: the current page changes on NextPage.
type PageSource interface {
	// WaitUntilReady blocks until table rows are present or timeout elapses
	WaitUntilReady(ctx context.Context, timeout time.Duration) error
	// CurrentRows returns the rows of the current page
	CurrentRows(ctx context.Context) ([]Row, error)
	// HasNextPage reports whether an enabled next control exists.
	// It returns ErrNoNextControl when the control is absent.
	HasNextPage(ctx context.Context) (bool, error)
	// NextPage activates the next control
	NextPage(ctx context.Context) error
}

// DriverConfig tunes pagination
type DriverConfig struct {
	SettleDelay   time.Duration
	RenderTimeout time.Duration
	MaxPages      int
	StaleRetries  int
	SizeHint      int
}

// Driver walks a PageSource page by page until it signals its end
type Driver struct {
	source    PageSource
	extractor *Extractor
	cfg       DriverConfig
	logger    *utils.Logger
	pacer     *utils.Pacer
	tracker   *utils.PageTracker
}

// NewDriver creates a new Driver
func NewDriver(source PageSource, cfg DriverConfig, logger *utils.Logger) *Driver {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	return &Driver{
		source:    source,
		extractor: NewExtractor(logger),
		cfg:       cfg,
		logger:    logger,
		pacer:     utils.NewPacer(cfg.SettleDelay),
		tracker:   utils.NewPageTracker(),
	}
}

// Run harvests until DONE. Harvested pages are always returned; the only
// error is ErrMaxPagesExceeded, which still comes with the partial result.
func (d *Driver) Run(ctx context.Context) (*models.HarvestResult, error) {
	agg := services.NewAggregator(d.logger, d.cfg.SizeHint)
	res := &models.HarvestResult{StartedAt: time.Now()}

	// the source has just navigated to the first page
	d.pacer.Mark()

	var runErr error
	page := 1
	for {
		reason, err := d.step(ctx, agg, page, res)
		if reason != "" {
			res.StopReason = reason
			runErr = err
			break
		}
		page++
	}

	res.Dataset = agg.Dataset()
	res.Pages = agg.Yields()
	res.DistinctPages = d.tracker.Count()
	res.FinishedAt = time.Now()
	d.logger.Info("Harvest done after %d pages (%d distinct): %d students, stop reason %s",
		res.PagesVisited, res.DistinctPages, agg.Total(), res.StopReason)
	return res, runErr
}

// step harvests one page. A non-empty reason means DONE.
func (d *Driver) step(ctx context.Context, agg *services.Aggregator, page int, res *models.HarvestResult) (models.StopReason, error) {
	if ctx.Err() != nil {
		return models.StopDeadline, nil
	}

	extracted, reason := d.readPage(ctx, page)
	if reason != "" {
		return reason, nil
	}
	res.PagesVisited = page
	res.Dropped += extracted.Dropped
	res.Skipped += extracted.Skipped

	if len(extracted.Records) == 0 {
		d.logger.Info("Page %d has no students, stopping", page)
		return models.StopEmptyPage, nil
	}

	fp := utils.Fingerprint(extracted.Cells)
	if !d.tracker.Add(fp, page) {
		prev, _ := d.tracker.Seen(fp)
		d.logger.Warn("Page %d repeats page %d, stopping", page, prev)
		return models.StopDuplicatePage, nil
	}
	agg.Add(page, len(extracted.Cells)+extracted.Dropped, extracted.Records, extracted.Dropped, extracted.Skipped)

	hasNext, err := d.source.HasNextPage(ctx)
	switch {
	case ctx.Err() != nil:
		return models.StopDeadline, nil
	case errors.Is(err, ErrNoNextControl):
		d.logger.Info("No next page control after page %d", page)
		return models.StopNoNextControl, nil
	case err != nil:
		d.logger.Error("Checking next page after page %d failed: %v", page, err)
		return models.StopPageFailure, nil
	case !hasNext:
		d.logger.Info("Next page control disabled after page %d", page)
		return models.StopNextDisabled, nil
	}

	if page >= d.cfg.MaxPages {
		d.logger.Error("Source still offers pages after %d pages, aborting", page)
		return models.StopMaxPagesExceeded, fmt.Errorf("%w: limit %d", ErrMaxPagesExceeded, d.cfg.MaxPages)
	}

	if err := d.source.NextPage(ctx); err != nil {
		if ctx.Err() != nil {
			return models.StopDeadline, nil
		}
		d.logger.Error("Navigating past page %d failed: %v", page, err)
		return models.StopPageFailure, nil
	}
	d.pacer.Mark()
	return "", nil
}

// readPage settles, waits for rows and extracts them. A page identical to
// one already harvested is re-read after another settle delay, since the
// new page may not have rendered yet.
func (d *Driver) readPage(ctx context.Context, page int) (ExtractResult, models.StopReason) {
	for attempt := 0; ; attempt++ {
		if err := d.pacer.Wait(ctx); err != nil {
			return ExtractResult{}, models.StopDeadline
		}

		if err := d.source.WaitUntilReady(ctx, d.cfg.RenderTimeout); err != nil {
			if ctx.Err() != nil {
				return ExtractResult{}, models.StopDeadline
			}
			d.logger.Warn("Page %d did not render within %v: %v", page, d.cfg.RenderTimeout, err)
			return ExtractResult{}, models.StopRenderTimeout
		}

		rows, err := d.source.CurrentRows(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ExtractResult{}, models.StopDeadline
			}
			d.logger.Error("Reading rows of page %d failed: %v", page, err)
			return ExtractResult{}, models.StopPageFailure
		}

		extracted := d.extractor.Extract(rows)
		if len(extracted.Records) == 0 || attempt >= d.cfg.StaleRetries {
			return extracted, ""
		}
		if _, seen := d.tracker.Seen(utils.Fingerprint(extracted.Cells)); !seen {
			return extracted, ""
		}
		d.logger.Debug("Page %d still shows a previous page, waiting %v", page, d.cfg.SettleDelay)
		d.pacer.Mark()
	}
}
