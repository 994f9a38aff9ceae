// Package cache stores computed month views keyed by calendar month, so
// scroll-driven viewport changes never recompute what is already known.
package cache

import (
	"sync"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/overlay"
)

// LoadState is the lifecycle state of one month's cache entry.
type LoadState int

const (
	StateNotRequested LoadState = iota
	StateLoading
	StateAvailable
	StateError
)

// String provides a human-readable representation of the LoadState.
func (s LoadState) String() string {
	switch s {
	case StateNotRequested:
		return "NotRequested"
	case StateLoading:
		return "Loading"
	case StateAvailable:
		return "Available"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MonthView is the display-ready result for one calendar month: a day
// view per date, plus the load state it was published under. On fetch
// failure Days still carries the rotation-only schedule (events are an
// overlay, not a prerequisite) and Err holds the cause.
type MonthView struct {
	Month dates.YearMonth
	State LoadState
	// Days holds one DayView per date of the month, in order.
	Days []overlay.DayView
	Err  error
}

// Day returns the view for d, if d belongs to this month.
func (mv MonthView) Day(d dates.Date) (overlay.DayView, bool) {
	if !mv.Month.Contains(d) || d.Day < 1 || d.Day > len(mv.Days) {
		return overlay.DayView{}, false
	}
	return mv.Days[d.Day-1], true
}

// DefaultMaxEntries covers the visible month plus a few pages on each
// side of a scrolling viewport.
const DefaultMaxEntries = 7

// ViewportCache is a bounded LRU of month views. Entries leave only by
// LRU eviction or explicit invalidation; there is no age-based expiry.
// All methods are safe for concurrent use.
type ViewportCache struct {
	mu         sync.RWMutex
	entries    map[dates.YearMonth]*cacheEntry
	maxEntries int
	seq        uint64
	evictions  uint64
}

type cacheEntry struct {
	view MonthView
	// accessSeq orders entries for LRU eviction.
	accessSeq uint64
}

// New creates a cache retaining at most maxEntries months; values < 1
// fall back to DefaultMaxEntries.
func New(maxEntries int) *ViewportCache {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &ViewportCache{
		entries:    make(map[dates.YearMonth]*cacheEntry),
		maxEntries: maxEntries,
	}
}

// Get retrieves the cached view for ym and marks it recently used.
func (c *ViewportCache) Get(ym dates.YearMonth) (MonthView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ym]
	if !ok {
		return MonthView{}, false
	}
	c.seq++
	entry.accessSeq = c.seq
	return entry.view, true
}

// Put stores a view for ym, evicting the least recently used month if
// the cache is over capacity.
func (c *ViewportCache) Put(ym dates.YearMonth, view MonthView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[ym] = &cacheEntry{view: view, accessSeq: c.seq}

	for len(c.entries) > c.maxEntries {
		var oldest dates.YearMonth
		var oldestSeq uint64
		first := true
		for key, entry := range c.entries {
			if first || entry.accessSeq < oldestSeq {
				oldest = key
				oldestSeq = entry.accessSeq
				first = false
			}
		}
		delete(c.entries, oldest)
		c.evictions++
	}
}

// Invalidate drops ym's entry. A subsequent Get reports a miss; the
// month is back to NotRequested.
func (c *ViewportCache) Invalidate(ym dates.YearMonth) {
	c.mu.Lock()
	delete(c.entries, ym)
	c.mu.Unlock()
}

// InvalidateRange drops every month intersecting [from, to] inclusive.
func (c *ViewportCache) InvalidateRange(from, to dates.Date) {
	if to.Before(from) {
		from, to = to, from
	}
	first := from.YearMonth()
	last := to.YearMonth()

	c.mu.Lock()
	for ym := first; !last.Before(ym); ym = ym.Next() {
		delete(c.entries, ym)
	}
	c.mu.Unlock()
}

// InvalidateAll empties the cache. Used when the active pattern or
// anchor date changes, which invalidates every derived view at once.
func (c *ViewportCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[dates.YearMonth]*cacheEntry)
	c.mu.Unlock()
}

// Months returns the keys of all cached entries, in no particular order.
func (c *ViewportCache) Months() []dates.YearMonth {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dates.YearMonth, 0, len(c.entries))
	for ym := range c.entries {
		out = append(out, ym)
	}
	return out
}

// Stats returns cache statistics
func (c *ViewportCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{TotalEntries: len(c.entries), Evictions: c.evictions}
	for _, entry := range c.entries {
		switch entry.view.State {
		case StateAvailable:
			stats.Available++
		case StateLoading:
			stats.Loading++
		case StateError:
			stats.Errored++
		}
	}
	return stats
}

// Stats provides information about cache contents
type Stats struct {
	TotalEntries int
	Available    int
	Loading      int
	Errored      int
	Evictions    uint64
}
