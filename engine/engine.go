// Package engine orchestrates the rotation calendar: it decides which
// months to compute for the current viewport, runs the fetch/resolve/merge
// pipeline off the notification thread, and publishes month views to
// subscribers through a single ordered delivery goroutine.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/samber/mo"

	"github.com/quattrodue/shiftcal/engine/cache"
	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/overlay"
	"github.com/quattrodue/shiftcal/engine/pattern"
	"github.com/quattrodue/shiftcal/engine/rotation"
	"github.com/quattrodue/shiftcal/engine/storage"
	"github.com/quattrodue/shiftcal/internal/patternxml"
)

// ScrollDirection is the user's scroll direction through the calendar.
type ScrollDirection int

const (
	ScrollNone ScrollDirection = iota
	ScrollForward
	ScrollBackward
)

// Subscriber receives month state transitions and loading progress. All
// callbacks for one Manager are delivered sequentially on a single
// goroutine, so implementations may touch UI state without locking.
type Subscriber interface {
	OnMonthStateChanged(month dates.YearMonth, state cache.LoadState, view cache.MonthView)
	OnLoadingProgress(month dates.YearMonth, percent int)
}

// FastScrollVelocity is the months-per-second speed above which prefetch
// reaches two months ahead instead of one.
const FastScrollVelocity = 2.0

const defaultWorkers = 4

// Options configures a Manager. The zero value is usable.
type Options struct {
	// Logger for structured diagnostics; nil uses slog.Default().
	Logger *slog.Logger
	// CacheMonths bounds the viewport cache; <1 uses cache.DefaultMaxEntries.
	CacheMonths int
	// Workers bounds concurrent repository fetches; <1 uses a default.
	Workers int
	// RefreshCron, when non-empty, is a cron spec (e.g. "*/15 * * * *")
	// on which every cached month is refreshed from the repository.
	RefreshCron string
}

// Manager is the viewport data manager. Construct with New; collaborators
// are injected explicitly, never looked up from ambient state.
type Manager struct {
	repo     storage.EventRepository
	prefs    storage.PreferenceStore
	registry *pattern.Registry
	cache    *cache.ViewportCache
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[dates.YearMonth]bool
	// gen guards against a stale in-flight result overwriting an entry
	// that was invalidated after its fetch was dispatched.
	gen      map[dates.YearMonth]uint64
	stops    rotation.StopSet
	activeID pattern.ID
	anchor   dates.Date
	// selected is set once SetActivePattern overrides the preference store.
	selected bool

	subMu       sync.RWMutex
	subscribers []Subscriber

	sem      chan struct{}
	notifyCh chan func()
	quit     chan struct{}
	closed   sync.Once

	cron *cron.Cron
}

// New creates a Manager over the given collaborators. The registry comes
// preloaded with the built-in pattern families.
func New(repo storage.EventRepository, prefs storage.PreferenceStore, opts Options) (*Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = defaultWorkers
	}

	m := &Manager{
		repo:     repo,
		prefs:    prefs,
		registry: pattern.NewRegistry(),
		cache:    cache.New(opts.CacheMonths),
		logger:   logger,
		inFlight: make(map[dates.YearMonth]bool),
		gen:      make(map[dates.YearMonth]uint64),
		stops:    rotation.StopSet{},
		sem:      make(chan struct{}, workers),
		notifyCh: make(chan func(), 256),
		quit:     make(chan struct{}),
	}

	go m.dispatchLoop()

	if opts.RefreshCron != "" {
		m.cron = cron.New()
		if _, err := m.cron.AddFunc(opts.RefreshCron, m.refreshAllCached); err != nil {
			return nil, fmt.Errorf("parse refresh cron %q: %w", opts.RefreshCron, err)
		}
		m.cron.Start()
	}

	return m, nil
}

// Close stops the delivery goroutine and the refresh scheduler. Pending
// notifications are dropped.
func (m *Manager) Close() {
	m.closed.Do(func() {
		if m.cron != nil {
			m.cron.Stop()
		}
		close(m.quit)
	})
}

// Subscribe registers a notification sink.
func (m *Manager) Subscribe(s Subscriber) {
	m.subMu.Lock()
	m.subscribers = append(m.subscribers, s)
	m.subMu.Unlock()
}

// dispatchLoop owns subscriber delivery: every callback runs here, in
// order, one at a time.
func (m *Manager) dispatchLoop() {
	for {
		select {
		case fn := <-m.notifyCh:
			fn()
		case <-m.quit:
			return
		}
	}
}

func (m *Manager) notify(fn func()) {
	select {
	case m.notifyCh <- fn:
	case <-m.quit:
	}
}

func (m *Manager) notifyState(ym dates.YearMonth, view cache.MonthView) {
	m.notify(func() {
		m.subMu.RLock()
		subs := m.subscribers
		m.subMu.RUnlock()
		for _, s := range subs {
			s.OnMonthStateChanged(ym, view.State, view)
		}
	})
}

func (m *Manager) notifyProgress(ym dates.YearMonth, percent int) {
	m.notify(func() {
		m.subMu.RLock()
		subs := m.subscribers
		m.subMu.RUnlock()
		for _, s := range subs {
			s.OnLoadingProgress(ym, percent)
		}
	})
}

// RegisterPattern validates and registers a custom rotation pattern,
// returning its id.
func (m *Manager) RegisterPattern(spec pattern.Spec) (pattern.ID, error) {
	return m.registry.Register(spec)
}

// ImportPattern registers a pattern from its XML exchange form. The
// imported spec goes through the same validation as RegisterPattern.
func (m *Manager) ImportPattern(r io.Reader) (pattern.ID, error) {
	spec, err := patternxml.Parse(r)
	if err != nil {
		return "", err
	}
	return m.registry.Register(spec)
}

// ExportPattern renders a registered pattern into the XML exchange form.
func (m *Manager) ExportPattern(id pattern.ID) ([]byte, error) {
	p, err := m.registry.Resolve(id)
	if err != nil {
		return nil, err
	}
	return patternxml.Marshal(p)
}

// SetActivePattern switches the active rotation and anchor date. Every
// cached view derives from the previous selection, so the whole cache is
// invalidated.
func (m *Manager) SetActivePattern(id pattern.ID, anchor dates.Date) error {
	if _, err := m.registry.Resolve(id); err != nil {
		return err
	}

	m.mu.Lock()
	m.activeID = id
	m.anchor = anchor
	m.selected = true
	m.bumpAllLocked()
	m.mu.Unlock()

	m.cache.InvalidateAll()
	m.logger.Info("active pattern changed", "pattern", id, "anchor", anchor.String())
	return nil
}

// SetExceptions replaces the schedule exception set (plant stops). All
// cached views are invalidated since any date may be affected.
func (m *Manager) SetExceptions(stops rotation.StopSet) {
	m.mu.Lock()
	if stops == nil {
		stops = rotation.StopSet{}
	}
	m.stops = stops
	m.bumpAllLocked()
	m.mu.Unlock()

	m.cache.InvalidateAll()
}

// activeRotation returns the current pattern and anchor, preferring an
// explicit SetActivePattern over the preference store.
func (m *Manager) activeRotation() (*pattern.RotationPattern, dates.Date, error) {
	m.mu.Lock()
	id, anchor, selected := m.activeID, m.anchor, m.selected
	m.mu.Unlock()

	if !selected {
		if m.prefs == nil {
			return nil, dates.Date{}, fmt.Errorf("no active pattern: %w", storage.ErrNotFound)
		}
		var err error
		id, anchor, err = m.prefs.ActiveRotation()
		if err != nil {
			return nil, dates.Date{}, fmt.Errorf("read active rotation: %w", err)
		}
	}

	p, err := m.registry.Resolve(id)
	if err != nil {
		return nil, dates.Date{}, err
	}
	return p, anchor, nil
}

// GetCachedDay returns the cached day view for d, or None. Synchronous
// and cache-only: it never triggers a fetch, and months in Loading or
// Error state report None.
func (m *Manager) GetCachedDay(d dates.Date) mo.Option[overlay.DayView] {
	view, ok := m.cache.Get(d.YearMonth())
	if !ok || view.State != cache.StateAvailable {
		return mo.None[overlay.DayView]()
	}
	day, ok := view.Day(d)
	if !ok {
		return mo.None[overlay.DayView]()
	}
	return mo.Some(day)
}

// Cache exposes the viewport cache for diagnostics (Stats) and explicit
// invalidation wiring.
func (m *Manager) Cache() *cache.ViewportCache {
	return m.cache
}

// RequestViewport requests the center month plus its prefetch neighbors.
// Direction and velocity bias which neighbors load: scrolling fast
// extends prefetch to two months on the leading side. This is a
// heuristic only; a missed prefetch just means a loading placeholder.
func (m *Manager) RequestViewport(ctx context.Context, center dates.YearMonth, direction ScrollDirection, velocity float64) {
	for _, ym := range prefetchWindow(center, direction, velocity) {
		m.request(ctx, ym)
	}
}

// prefetchWindow lists the months to load, center first.
func prefetchWindow(center dates.YearMonth, direction ScrollDirection, velocity float64) []dates.YearMonth {
	ahead, behind := 1, 1
	if velocity < 0 {
		velocity = -velocity
	}
	if velocity >= FastScrollVelocity {
		switch direction {
		case ScrollForward:
			ahead = 2
		case ScrollBackward:
			behind = 2
		}
	}

	window := []dates.YearMonth{center}
	if direction == ScrollBackward {
		for i := 1; i <= behind; i++ {
			window = append(window, center.AddMonths(-i))
		}
		for i := 1; i <= ahead; i++ {
			window = append(window, center.AddMonths(i))
		}
		return window
	}
	for i := 1; i <= ahead; i++ {
		window = append(window, center.AddMonths(i))
	}
	for i := 1; i <= behind; i++ {
		window = append(window, center.AddMonths(-i))
	}
	return window
}

// RefreshMonth forces ym back to NotRequested and re-enters the load
// pipeline, regardless of current state. Used after external event or
// pattern mutation, and as the retry affordance for Error months.
func (m *Manager) RefreshMonth(ctx context.Context, ym dates.YearMonth) {
	m.mu.Lock()
	m.gen[ym]++
	m.inFlight[ym] = false
	m.mu.Unlock()

	m.cache.Invalidate(ym)
	m.request(ctx, ym)
}

// InvalidateRange drops cached months intersecting [from, to]. Wire the
// event store's change notifications here.
func (m *Manager) InvalidateRange(from, to dates.Date) {
	if to.Before(from) {
		from, to = to, from
	}
	m.mu.Lock()
	for ym := from.YearMonth(); !to.YearMonth().Before(ym); ym = ym.Next() {
		m.gen[ym]++
	}
	m.mu.Unlock()

	m.cache.InvalidateRange(from, to)
}

func (m *Manager) bumpAllLocked() {
	for ym := range m.gen {
		m.gen[ym]++
	}
	for ym := range m.inFlight {
		m.inFlight[ym] = false
	}
}

func (m *Manager) refreshAllCached() {
	for _, ym := range m.cache.Months() {
		m.RefreshMonth(context.Background(), ym)
	}
}

// request transitions ym into Loading and dispatches the pipeline. A
// cache hit returns immediately; a request for a month already Loading is
// a no-op that rides the in-flight fetch.
func (m *Manager) request(ctx context.Context, ym dates.YearMonth) {
	if view, ok := m.cache.Get(ym); ok && view.State == cache.StateAvailable {
		m.notifyState(ym, view)
		return
	}

	m.mu.Lock()
	if m.inFlight[ym] {
		m.mu.Unlock()
		return
	}
	m.inFlight[ym] = true
	gen := m.gen[ym]
	stops := m.stops
	m.mu.Unlock()

	loading := cache.MonthView{Month: ym, State: cache.StateLoading}
	m.cache.Put(ym, loading)
	m.notifyState(ym, loading)

	go func() {
		m.sem <- struct{}{}
		defer func() { <-m.sem }()
		m.load(ctx, ym, gen, stops)
	}()
}

// load runs the three-phase pipeline for one month: fetch events,
// resolve the rotation, merge, publish. Fetch errors never cross the
// async boundary; they become an Error month view that still carries the
// rotation-only schedule.
func (m *Manager) load(ctx context.Context, ym dates.YearMonth, gen uint64, stops rotation.StopSet) {
	first := ym.First()

	view := cache.MonthView{Month: ym}
	if err := rotation.CheckDate(first); err != nil {
		view.State = cache.StateError
		view.Err = err
		m.publish(ym, gen, view)
		return
	}

	p, anchor, err := m.activeRotation()
	if err != nil {
		view.State = cache.StateError
		view.Err = err
		m.publish(ym, gen, view)
		return
	}
	m.notifyProgress(ym, 25)

	events, fetchErr := m.repo.FindEvents(ctx, first, ym.Next().First())
	m.notifyProgress(ym, 50)

	schedules := rotation.ResolveMonth(p, anchor, ym, stops)
	m.notifyProgress(ym, 75)

	expanded := overlay.Expand(events)
	for _, w := range expanded.Warnings {
		m.logger.Warn("event span anomaly", "event", w.EventID, "kind", string(w.Kind),
			"start", w.Start.String(), "end", w.End.String())
	}

	days := make([]overlay.DayView, len(schedules))
	for i, sched := range schedules {
		days[i] = overlay.Merge(sched, expanded.Buckets)
	}
	view.Days = days

	if fetchErr != nil {
		// Events are an overlay, not a prerequisite: keep the schedule,
		// retain the error for the retry affordance.
		view.State = cache.StateError
		view.Err = fmt.Errorf("fetch events for %s: %w", ym, fetchErr)
		m.logger.Error("event fetch failed", "month", ym.String(), "err", fetchErr)
	} else {
		view.State = cache.StateAvailable
	}

	m.notifyProgress(ym, 100)
	m.publish(ym, gen, view)
}

// publish stores the finished view unless the month was invalidated
// after this load was dispatched, then notifies subscribers.
func (m *Manager) publish(ym dates.YearMonth, gen uint64, view cache.MonthView) {
	m.mu.Lock()
	stale := m.gen[ym] != gen
	if !stale {
		m.inFlight[ym] = false
	}
	m.mu.Unlock()

	if stale {
		m.logger.Debug("dropping stale month result", "month", ym.String())
		return
	}

	m.cache.Put(ym, view)
	m.logger.Debug("month published", "month", ym.String(), "state", view.State.String())
	m.notifyState(ym, view)
}
