package utils

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a settle delay between a state-changing action (navigation)
// and the next read of the page.
type Pacer struct {
	mu    sync.Mutex
	last  time.Time
	delay time.Duration
	now   func() time.Time
}

// NewPacer creates a Pacer with the given settle delay
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, now: time.Now}
}

// Mark records that a state-changing action just happened
func (p *Pacer) Mark() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = p.now()
}

// Remaining reports how much of the settle delay is still outstanding
func (p *Pacer) Remaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last.IsZero() {
		return 0
	}
	left := p.delay - p.now().Sub(p.last)
	if left < 0 {
		return 0
	}
	return left
}

// Wait blocks until the settle delay since the last Mark has elapsed
func (p *Pacer) Wait(ctx context.Context) error {
	return Sleep(ctx, p.Remaining())
}
