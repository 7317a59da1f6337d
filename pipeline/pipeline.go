// Package pipeline runs one harvest end to end: it acquires the page
// renderer, walks every page, imputes missing scores and writes the
// export, the raw dump and the run report into the output directory.
//
// The run is fail-soft once harvesting has begun. Render timeouts,
// navigation failures and the global run deadline all end pagination
// early, and whatever was harvested is still cleaned and exported. Only a
// renderer that cannot be acquired is reported as failure with no result.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"student-harvester/config"
	"student-harvester/models"
	"student-harvester/scraper/students"
	"student-harvester/services"
	"student-harvester/storage"
	"student-harvester/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const storeTimeout = 2 * time.Minute

// Source is a PageSource that holds an external resource
type Source interface {
	students.PageSource
	io.Closer
}

// Opener acquires the page renderer and loads the first page
type Opener func(ctx context.Context) (Source, error)

// BrowserOpener opens a chromedp-backed source for cfg
func BrowserOpener(cfg *config.Config, logger *utils.Logger) Opener {
	return func(ctx context.Context) (Source, error) {
		return students.OpenBrowserSource(ctx, cfg, logger)
	}
}

// Result describes a finished run
type Result struct {
	RunID       string
	Harvest     *models.HarvestResult
	Cleaned     []models.CleanedRecord
	Stats       models.ImputationStats
	Columns     []models.Field
	Insights    *models.InsightReport
	RawPath     string
	CleanedPath string
	ReportPath  string
}

// Pipeline wires the harvesting and cleaning components together
type Pipeline struct {
	cfg    *config.Config
	open   Opener
	stores []storage.RecordStore
	runID  string
	logger *utils.Logger
}

// New creates a Pipeline. Stores receive the cleaned dataset after export;
// their failures are logged and never fail the run.
func New(cfg *config.Config, open Opener, logger *utils.Logger, stores ...storage.RecordStore) *Pipeline {
	runID := uuid.NewString()
	return &Pipeline{
		cfg:    cfg,
		open:   open,
		stores: stores,
		runID:  runID,
		logger: logger.With("run_id", runID),
	}
}

// AddStore registers another sink for the cleaned dataset
func (p *Pipeline) AddStore(store storage.RecordStore) {
	p.stores = append(p.stores, store)
}

// RunID identifies this pipeline's run in logs, reports and stores
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes the pipeline. The returned error is non-nil when the
// renderer could not be acquired (Result is nil), when an output file could
// not be written, or when the page ceiling was hit (Result is complete).
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	harvest, harvestErr := p.harvest(ctx)
	if harvest == nil {
		return nil, harvestErr
	}

	res := &Result{RunID: p.runID, Harvest: harvest}
	imputer := services.NewImputer(p.cfg.MissingHometown, p.logger)
	res.Cleaned, res.Stats = imputer.ImputeWithStats(harvest.Dataset)
	res.Insights = services.NewInsightService(p.logger).Generate(res.Cleaned)

	// export is not bound to the run deadline: a late harvest must still be written
	csvWriter := storage.NewCSVWriter(p.cfg.OutputDirectory, p.logger)
	var err error
	if res.RawPath, err = csvWriter.WriteRaw(harvest.Dataset); err != nil {
		p.logger.Error("Failed to write raw CSV: %v", err)
	}
	if res.CleanedPath, res.Columns, err = csvWriter.WriteCleaned(res.Cleaned); err != nil {
		return res, fmt.Errorf("export failed: %w", err)
	}

	res.ReportPath, err = storage.NewMarkdownReportWriter(p.cfg.OutputDirectory).Write(storage.RunSummary{
		RunID:      p.runID,
		Source:     p.cfg.SourceLocation,
		Harvest:    harvest,
		Stats:      res.Stats,
		Columns:    res.Columns,
		Insights:   res.Insights,
		CleanedCSV: res.CleanedPath,
	})
	if err != nil {
		p.logger.Error("Failed to write run report: %v", err)
	}

	if err := p.save(res.Cleaned); err != nil {
		p.logger.Warn("Cleaned students were not stored everywhere: %v", err)
	}
	return res, harvestErr
}

// harvest owns the renderer: it is released on every path out of here
func (p *Pipeline) harvest(ctx context.Context) (*models.HarvestResult, error) {
	source, err := p.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot start harvesting: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			p.logger.Warn("Closing page source failed: %v", cerr)
		}
	}()

	driver := students.NewDriver(source, students.DriverConfig{
		SettleDelay:   p.cfg.SettleDelay,
		RenderTimeout: p.cfg.RenderTimeout,
		MaxPages:      p.cfg.MaxPages,
		StaleRetries:  p.cfg.StaleRetries,
		SizeHint:      p.cfg.PageSizeHint,
	}, p.logger)

	harvest, err := driver.Run(ctx)
	if err != nil {
		p.logger.Error("Harvest aborted: %v", err)
	}
	return harvest, err
}

// save hands the cleaned dataset to every store concurrently and returns
// the first failure. Each failure is logged where it happens since
// errgroup keeps only one; a failing store does not cancel the others.
func (p *Pipeline) save(records []models.CleanedRecord) error {
	if len(p.stores) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var g errgroup.Group
	for i, store := range p.stores {
		i, store := i, store
		g.Go(func() error {
			if err := store.SaveCleaned(ctx, records); err != nil {
				p.logger.Error("Store %d failed: %v", i+1, err)
				return fmt.Errorf("store %d: %w", i+1, err)
			}
			return nil
		})
	}
	return g.Wait()
}
