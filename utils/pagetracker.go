package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// PageTracker remembers fingerprints of harvested pages so a page that is
// served twice (stale render, looping paginator) is never harvested twice.
type PageTracker struct {
	mu   sync.Mutex
	seen map[string]int
}

// NewPageTracker creates a new tracker
func NewPageTracker() *PageTracker {
	return &PageTracker{seen: make(map[string]int)}
}

// Fingerprint hashes the cell text of every row on a page
func Fingerprint(rows [][]string) string {
	h := sha256.New()
	for _, cells := range rows {
		h.Write([]byte(strings.Join(cells, "\x1f")))
		h.Write([]byte{'\x1e'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Seen returns the page number that produced fp, if any
func (t *PageTracker) Seen(fp string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	page, ok := t.seen[fp]
	return page, ok
}

// Add returns true if the fingerprint is new, false if it was already harvested
func (t *PageTracker) Add(fp string, page int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.seen[fp]; exists {
		return false
	}
	t.seen[fp] = page
	return true
}

// Count returns the number of tracked pages
func (t *PageTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
