package students

import (
	"context"
	"testing"
	"time"

	"student-harvester/models"
	"student-harvester/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDriverConfig() DriverConfig {
	return DriverConfig{
		RenderTimeout: time.Second,
		MaxPages:      100,
		StaleRetries:  2,
		SizeHint:      10,
	}
}

func runDriver(t *testing.T, src PageSource, cfg DriverConfig) (*models.HarvestResult, error) {
	t.Helper()
	return NewDriver(src, cfg, utils.NopLogger()).Run(context.Background())
}

func TestDriverStopsOnEmptyPage(t *testing.T) {
	src := &fakeSource{pages: []fakePage{
		{rows: studentRows(1, 10)},
		{rows: studentRows(2, 10)},
		{rows: nil},
	}}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)

	assert.Equal(t, models.StopEmptyPage, res.StopReason)
	assert.Len(t, res.Dataset, 20)
	assert.Equal(t, 3, res.PagesVisited)
	assert.Equal(t, 2, res.DistinctPages, "the empty page is not tracked")
	require.Len(t, res.Pages, 2)
	assert.Equal(t, 10, res.Pages[0].Records)
	assert.Equal(t, 20, res.Pages[1].Total)
	assert.Equal(t, "S0100", res.Dataset[0].StudentID.String)
	assert.Equal(t, "S0209", res.Dataset[19].StudentID.String, "harvest order is page order")
}

func TestDriverStopsOnDisabledNext(t *testing.T) {
	src := &fakeSource{pages: []fakePage{
		{rows: studentRows(1, 10)},
		{rows: studentRows(2, 10), disabled: true},
	}}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, models.StopNextDisabled, res.StopReason)
	assert.Len(t, res.Dataset, 20)
	assert.Equal(t, 1, src.navigations)
}

func TestDriverStopsWhenNextControlMissing(t *testing.T) {
	src := &fakeSource{
		pages:           []fakePage{{rows: studentRows(1, 4)}},
		noControlOnLast: true,
	}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, models.StopNoNextControl, res.StopReason)
	assert.Len(t, res.Dataset, 4)
}

func TestDriverRenderTimeoutIsNotFatal(t *testing.T) {
	src := &fakeSource{
		pages: []fakePage{
			{rows: studentRows(1, 10)},
			{rows: studentRows(2, 10)},
		},
		readyErr: map[int]error{1: context.DeadlineExceeded},
	}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, models.StopRenderTimeout, res.StopReason)
	assert.Len(t, res.Dataset, 10)
}

func TestDriverNavigationFailureKeepsHarvest(t *testing.T) {
	src := &fakeSource{
		pages: []fakePage{
			{rows: studentRows(1, 10)},
			{rows: studentRows(2, 10)},
			{rows: studentRows(3, 10)},
		},
		navErr: map[int]error{1: errBoom},
	}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, models.StopPageFailure, res.StopReason)
	assert.Len(t, res.Dataset, 20)
}

func TestDriverRowReadFailureKeepsHarvest(t *testing.T) {
	src := &fakeSource{
		pages: []fakePage{
			{rows: studentRows(1, 10)},
			{rows: studentRows(2, 10)},
		},
		rowsErr: map[int]error{1: errBoom},
	}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, models.StopPageFailure, res.StopReason)
	assert.Len(t, res.Dataset, 10)
}

func TestDriverMaxPagesExceeded(t *testing.T) {
	pages := make([]fakePage, 10)
	for i := range pages {
		pages[i] = fakePage{rows: studentRows(i+1, 2)}
	}
	src := &fakeSource{pages: pages}
	cfg := testDriverConfig()
	cfg.MaxPages = 3

	res, err := runDriver(t, src, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxPagesExceeded)
	assert.Equal(t, models.StopMaxPagesExceeded, res.StopReason)
	assert.Len(t, res.Dataset, 6, "pages within the ceiling are kept")
}

func TestDriverMaxPagesNotExceededOnLastPage(t *testing.T) {
	src := &fakeSource{pages: []fakePage{
		{rows: studentRows(1, 2)},
		{rows: studentRows(2, 2), disabled: true},
	}}
	cfg := testDriverConfig()
	cfg.MaxPages = 2

	res, err := runDriver(t, src, cfg)
	require.NoError(t, err)
	assert.Equal(t, models.StopNextDisabled, res.StopReason)
}

func TestDriverWaitsOutStaleRender(t *testing.T) {
	src := &fakeSource{
		pages: []fakePage{
			{rows: studentRows(1, 5)},
			{rows: studentRows(2, 5), disabled: true},
		},
		staleReads: 1,
	}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, models.StopNextDisabled, res.StopReason)
	assert.Len(t, res.Dataset, 10, "the stale read is retried, not harvested")
}

func TestDriverNeverDuplicatesPage(t *testing.T) {
	src := &fakeSource{
		pages: []fakePage{
			{rows: studentRows(1, 5)},
			{rows: studentRows(2, 5)},
		},
		staleReads: 10,
	}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, models.StopDuplicatePage, res.StopReason)
	assert.Len(t, res.Dataset, 5)
	assert.Equal(t, 1, res.DistinctPages)
}

func TestDriverDeadlineReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{pages: []fakePage{
		{rows: studentRows(1, 10)},
		{rows: studentRows(2, 10)},
		{rows: studentRows(3, 10)},
	}}
	src.onNext = func() {
		if src.current == 2 {
			cancel()
		}
	}

	res, err := NewDriver(src, testDriverConfig(), utils.NopLogger()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StopDeadline, res.StopReason)
	assert.Len(t, res.Dataset, 20)
}

func TestDriverCountsDroppedAndSkippedRows(t *testing.T) {
	rows := append(studentRows(1, 3), []string{"too", "short"})
	src := &fakeSource{pages: []fakePage{{rows: rows, disabled: true}}}

	res, err := runDriver(t, src, testDriverConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, 4, res.Pages[0].Rows)
	assert.Equal(t, 3, res.Pages[0].Records)
}
