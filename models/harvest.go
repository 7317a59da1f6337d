package models

import "time"

// StopReason records why the pagination driver moved to DONE
type StopReason string

const (
	StopEmptyPage        StopReason = "empty_page"
	StopNoNextControl    StopReason = "no_next_control"
	StopNextDisabled     StopReason = "next_disabled"
	StopRenderTimeout    StopReason = "render_timeout"
	StopPageFailure      StopReason = "page_failure"
	StopDuplicatePage    StopReason = "duplicate_page"
	StopDeadline         StopReason = "deadline"
	StopMaxPagesExceeded StopReason = "max_pages_exceeded"
)

// PageYield is the per-page diagnostic produced while harvesting
type PageYield struct {
	Page    int
	Rows    int // rows present in the table
	Records int // records extracted
	Dropped int // rows that failed extraction
	Skipped int // rows with too few cells
	Total   int // running total after this page
}

// HarvestResult is everything the pagination driver collected
type HarvestResult struct {
	Dataset       Dataset
	Pages         []PageYield
	StopReason    StopReason
	PagesVisited  int
	DistinctPages int // pages whose rows were harvested
	Dropped       int
	Skipped       int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// FieldImputation counts what happened to one score field during imputation
type FieldImputation struct {
	Observed       int
	FilledByGroup  int
	FilledByGlobal int
	StillMissing   int
	GlobalMean     float64
	HasGlobalMean  bool
}

// ImputationStats is keyed by score field
type ImputationStats map[Field]FieldImputation
