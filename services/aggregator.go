package services

import (
	"student-harvester/models"
	"student-harvester/utils"
)

// Aggregator accumulates extracted records across pages. It owns the
// dataset exclusively and performs no deduplication.
type Aggregator struct {
	logger  *utils.Logger
	dataset models.Dataset
	yields  []models.PageYield
}

// NewAggregator creates an Aggregator, preallocating for sizeHint records
func NewAggregator(logger *utils.Logger, sizeHint int) *Aggregator {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Aggregator{
		logger:  logger,
		dataset: make(models.Dataset, 0, sizeHint),
	}
}

// Add appends one page's records and returns its yield with the running total
func (a *Aggregator) Add(page, rows int, records []models.RawRecord, dropped, skipped int) models.PageYield {
	a.dataset = append(a.dataset, records...)
	y := models.PageYield{
		Page:    page,
		Rows:    rows,
		Records: len(records),
		Dropped: dropped,
		Skipped: skipped,
		Total:   len(a.dataset),
	}
	a.yields = append(a.yields, y)
	a.logger.Info("Page %d: %d students (total so far: %d)", page, y.Records, y.Total)
	if dropped > 0 || skipped > 0 {
		a.logger.Info("Page %d: dropped %d rows, skipped %d short rows", page, dropped, skipped)
	}
	return y
}

// Dataset returns a copy of the accumulated records in harvest order
func (a *Aggregator) Dataset() models.Dataset {
	out := make(models.Dataset, len(a.dataset))
	copy(out, a.dataset)
	return out
}

// Yields returns the per-page diagnostics
func (a *Aggregator) Yields() []models.PageYield {
	out := make([]models.PageYield, len(a.yields))
	copy(out, a.yields)
	return out
}

// Total returns the number of records accumulated so far
func (a *Aggregator) Total() int {
	return len(a.dataset)
}
