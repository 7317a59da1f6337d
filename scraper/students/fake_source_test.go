package students

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// fakeSource replays scripted pages. Each page lists its rows and whether
// its next control is enabled.
type fakeSource struct {
	pages       []fakePage
	current     int
	navigations int

	noControlOnLast bool
	readyErr        map[int]error
	rowsErr         map[int]error
	navErr          map[int]error
	staleReads      int // reads of a new page that still show the previous one
	staleLeft       int
	onNext          func()
}

type fakePage struct {
	rows     [][]string
	disabled bool
}

func (f *fakeSource) WaitUntilReady(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.readyErr[f.current]
}

func (f *fakeSource) CurrentRows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.rowsErr[f.current]; err != nil {
		return nil, err
	}
	idx := f.current
	if f.staleLeft > 0 && idx > 0 {
		f.staleLeft--
		idx--
	}
	if idx >= len(f.pages) {
		return nil, nil
	}
	rows := make([]Row, 0, len(f.pages[idx].rows))
	for _, cells := range f.pages[idx].rows {
		rows = append(rows, TextRow(cells))
	}
	return rows, nil
}

func (f *fakeSource) HasNextPage(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	last := f.current >= len(f.pages)-1
	if last && f.noControlOnLast {
		return false, ErrNoNextControl
	}
	if f.current < len(f.pages) {
		return !f.pages[f.current].disabled, nil
	}
	return false, nil
}

func (f *fakeSource) NextPage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.navErr[f.current]; err != nil {
		return err
	}
	f.current++
	f.navigations++
	f.staleLeft = f.staleReads
	if f.onNext != nil {
		f.onNext()
	}
	return nil
}

// studentRows builds n full-layout rows for a page; every third row has a
// blank math score.
func studentRows(page, n int) [][]string {
	towns := []string{"Hanoi", "Hue", "Da Nang"}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("S%02d%02d", page, i)
		math := fmt.Sprintf("%d", 5+i%5)
		if i%3 == 0 {
			math = ""
		}
		rows = append(rows, []string{
			id, "First" + id, "Last" + id, id + "@example.com", "2004-01-01",
			towns[i%len(towns)], math, "7", "8",
		})
	}
	return rows
}

var errBoom = errors.New("boom")
