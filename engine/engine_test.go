package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quattrodue/shiftcal/engine/cache"
	"github.com/quattrodue/shiftcal/engine/config"
	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
	"github.com/quattrodue/shiftcal/engine/rotation"
	"github.com/quattrodue/shiftcal/engine/storage"
	"github.com/quattrodue/shiftcal/engine/storage/memory"
)

type stateEvent struct {
	month dates.YearMonth
	state cache.LoadState
	view  cache.MonthView
}

// testSink records state transitions and signals terminal ones.
type testSink struct {
	mu       sync.Mutex
	states   []stateEvent
	terminal chan stateEvent
}

func newTestSink() *testSink {
	return &testSink{terminal: make(chan stateEvent, 32)}
}

func (s *testSink) OnMonthStateChanged(month dates.YearMonth, state cache.LoadState, view cache.MonthView) {
	s.mu.Lock()
	s.states = append(s.states, stateEvent{month, state, view})
	s.mu.Unlock()
	if state == cache.StateAvailable || state == cache.StateError {
		s.terminal <- stateEvent{month, state, view}
	}
}

func (s *testSink) OnLoadingProgress(dates.YearMonth, int) {}

func waitTerminal(t *testing.T, sink *testSink, n int) map[dates.YearMonth]stateEvent {
	t.Helper()
	out := make(map[dates.YearMonth]stateEvent)
	for i := 0; i < n; i++ {
		select {
		case ev := <-sink.terminal:
			out[ev.month] = ev
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for terminal state %d of %d", i+1, n)
		}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestManager(t *testing.T, repo storage.EventRepository) (*Manager, *testSink) {
	t.Helper()
	prefs := memory.NewPreferences(pattern.Fixed42, dates.NewDate(2024, 1, 1))
	mgr, err := New(repo, prefs, Options{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	sink := newTestSink()
	mgr.Subscribe(sink)
	return mgr, sink
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := New(nil, nil, Options{})
	assert.Error(t, err)
}

func TestRequestViewportPublishesMonths(t *testing.T) {
	repo := &storage.MockRepository{}
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Return([]storage.Event{
			storage.NewMockEvent("ev-1", "standup", storage.TypeMeeting, dates.NewDate(2024, 1, 10)),
		}, nil)

	mgr, sink := newTestManager(t, repo)

	center := dates.YearMonth{Year: 2024, Month: time.January}
	mgr.RequestViewport(context.Background(), center, ScrollNone, 0)

	results := waitTerminal(t, sink, 3)
	for _, m := range []dates.YearMonth{center.Prev(), center, center.Next()} {
		ev, ok := results[m]
		require.True(t, ok, "no terminal state for %s", m)
		assert.Equal(t, cache.StateAvailable, ev.state)
		assert.Len(t, ev.view.Days, m.NumDays())
	}

	day, ok := mgr.GetCachedDay(dates.NewDate(2024, 1, 10)).Get()
	require.True(t, ok)
	assert.Equal(t, 1, day.EventCount)
	assert.Equal(t, "ev-1", day.Events[0].ID)
	assert.NotEmpty(t, day.Schedule.Slots)
}

func TestNoDuplicateConcurrentFetch(t *testing.T) {
	repo := &storage.MockRepository{}
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(50 * time.Millisecond) }).
		Return([]storage.Event{}, nil)

	mgr, sink := newTestManager(t, repo)

	center := dates.YearMonth{Year: 2024, Month: time.June}
	ctx := context.Background()

	// The Loading placeholder is stored synchronously, so the second call
	// sees every month in flight and must not dispatch again.
	mgr.RequestViewport(ctx, center, ScrollNone, 0)
	mgr.RequestViewport(ctx, center, ScrollNone, 0)

	waitTerminal(t, sink, 3)
	repo.AssertNumberOfCalls(t, "FindEvents", 3)
}

func TestCachedMonthSkipsFetch(t *testing.T) {
	repo := &storage.MockRepository{}
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Return([]storage.Event{}, nil)

	mgr, sink := newTestManager(t, repo)
	center := dates.YearMonth{Year: 2024, Month: time.June}
	ctx := context.Background()

	mgr.RequestViewport(ctx, center, ScrollNone, 0)
	waitTerminal(t, sink, 3)
	calls := len(repo.Calls)

	// Everything is cached now: re-requesting renotifies without fetching.
	mgr.RequestViewport(ctx, center, ScrollNone, 0)
	waitTerminal(t, sink, 3)
	repo.AssertNumberOfCalls(t, "FindEvents", calls)
}

// Event store failure for March 2025: the month publishes Error with the
// rotation-only schedule intact, GetCachedDay stays empty, and a
// successful refresh recovers.
func TestFetchErrorThenRefresh(t *testing.T) {
	repo := &storage.MockRepository{}
	isMarch := mock.MatchedBy(func(d dates.Date) bool {
		return d.Year == 2025 && d.Month == time.March
	})
	repo.On("FindEvents", mock.Anything, isMarch, mock.Anything).
		Return(nil, storage.ErrRepositoryUnavailable).Once()
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Return([]storage.Event{}, nil)

	mgr, sink := newTestManager(t, repo)
	march := dates.YearMonth{Year: 2025, Month: time.March}
	ctx := context.Background()

	mgr.RequestViewport(ctx, march, ScrollNone, 0)
	results := waitTerminal(t, sink, 3)

	ev := results[march]
	require.Equal(t, cache.StateError, ev.state)
	require.Error(t, ev.view.Err)
	assert.True(t, errors.Is(ev.view.Err, storage.ErrRepositoryUnavailable))
	// Degraded view still carries the schedule for every day.
	assert.Len(t, ev.view.Days, march.NumDays())
	assert.NotEmpty(t, ev.view.Days[0].Schedule.Slots)

	// Error months never satisfy cache-only day lookups.
	assert.True(t, mgr.GetCachedDay(dates.NewDate(2025, 3, 10)).IsAbsent())

	mgr.RefreshMonth(ctx, march)
	refreshed := waitTerminal(t, sink, 1)
	assert.Equal(t, cache.StateAvailable, refreshed[march].state)
	assert.True(t, mgr.GetCachedDay(dates.NewDate(2025, 3, 10)).IsPresent())
}

func TestGetCachedDayNeverFetches(t *testing.T) {
	repo := &storage.MockRepository{}
	mgr, _ := newTestManager(t, repo)

	assert.True(t, mgr.GetCachedDay(dates.NewDate(2024, 5, 5)).IsAbsent())
	repo.AssertNumberOfCalls(t, "FindEvents", 0)
}

func TestSetActivePatternInvalidatesCache(t *testing.T) {
	repo := &storage.MockRepository{}
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Return([]storage.Event{}, nil)

	mgr, sink := newTestManager(t, repo)
	center := dates.YearMonth{Year: 2024, Month: time.January}
	mgr.RequestViewport(context.Background(), center, ScrollNone, 0)
	waitTerminal(t, sink, 3)

	require.NoError(t, mgr.SetActivePattern(pattern.Weekly52, dates.NewDate(2024, 1, 1)))

	assert.Equal(t, 0, mgr.Cache().Stats().TotalEntries)
	assert.True(t, mgr.GetCachedDay(dates.NewDate(2024, 1, 10)).IsAbsent())
}

func TestSetActivePatternUnknown(t *testing.T) {
	repo := &storage.MockRepository{}
	mgr, _ := newTestManager(t, repo)

	err := mgr.SetActivePattern("no-such", dates.NewDate(2024, 1, 1))
	var notFound *pattern.PatternNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestInvalidateRangeDropsMonths(t *testing.T) {
	repo := &storage.MockRepository{}
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Return([]storage.Event{}, nil)

	mgr, sink := newTestManager(t, repo)
	center := dates.YearMonth{Year: 2024, Month: time.June}
	mgr.RequestViewport(context.Background(), center, ScrollNone, 0)
	waitTerminal(t, sink, 3)

	mgr.InvalidateRange(dates.NewDate(2024, 6, 1), dates.NewDate(2024, 6, 30))

	_, ok := mgr.Cache().Get(center)
	assert.False(t, ok, "June must be invalidated")
	_, ok = mgr.Cache().Get(center.Prev())
	assert.True(t, ok, "May must survive")
}

func TestStopsFlagSlots(t *testing.T) {
	repo := &storage.MockRepository{}
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Return([]storage.Event{}, nil)

	mgr, sink := newTestManager(t, repo)

	stopDay := dates.NewDate(2024, 1, 10)
	stops := rotation.StopSet{}
	stops.Add(stopDay, rotation.WholeDay)
	mgr.SetExceptions(stops)

	mgr.RequestViewport(context.Background(), stopDay.YearMonth(), ScrollNone, 0)
	waitTerminal(t, sink, 3)

	day, ok := mgr.GetCachedDay(stopDay).Get()
	require.True(t, ok)
	for _, slot := range day.Schedule.Slots {
		assert.True(t, slot.IsStopped)
		assert.NotEmpty(t, slot.Teams, "stopped slots keep their teams for display")
	}
}

func TestPrefetchWindow(t *testing.T) {
	center := dates.YearMonth{Year: 2024, Month: time.June}

	tests := []struct {
		name      string
		direction ScrollDirection
		velocity  float64
		want      []dates.YearMonth
	}{
		{
			name: "idle", direction: ScrollNone, velocity: 0,
			want: []dates.YearMonth{center, center.Next(), center.Prev()},
		},
		{
			name: "slow forward", direction: ScrollForward, velocity: 0.5,
			want: []dates.YearMonth{center, center.Next(), center.Prev()},
		},
		{
			name: "fast forward", direction: ScrollForward, velocity: 3,
			want: []dates.YearMonth{center, center.Next(), center.AddMonths(2), center.Prev()},
		},
		{
			name: "fast backward", direction: ScrollBackward, velocity: 3,
			want: []dates.YearMonth{center, center.Prev(), center.AddMonths(-2), center.Next()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prefetchWindow(center, tt.direction, tt.velocity))
		})
	}
}

func TestImportExportPattern(t *testing.T) {
	repo := &storage.MockRepository{}
	mgr, _ := newTestManager(t, repo)

	data, err := mgr.ExportPattern(pattern.Weekly52)
	require.NoError(t, err)

	id, err := mgr.ImportPattern(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, pattern.Weekly52, id, "exchange form preserves the id")

	_, err = mgr.ExportPattern("no-such")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	conf := config.DefaultConfig()
	conf.ActivePattern = "cfg-rotation"
	conf.AnchorDate = "2024-01-01"
	conf.Patterns = []config.PatternConfig{{
		ID:          "cfg-rotation",
		Name:        "Config rotation",
		CycleLength: 1,
		Slots:       []config.SlotConfig{{Name: "day", Start: "08:00", End: "16:00"}},
		Teams:       []config.TeamConfig{{ID: "A"}},
		Assignments: [][][]string{{{"A"}}},
	}}

	repo := &storage.MockRepository{}
	repo.On("FindEvents", mock.Anything, mock.Anything, mock.Anything).
		Return([]storage.Event{}, nil)

	mgr, err := NewFromConfig(conf, repo, quietLogger())
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	sink := newTestSink()
	mgr.Subscribe(sink)

	center := dates.YearMonth{Year: 2024, Month: time.January}
	mgr.RequestViewport(context.Background(), center, ScrollNone, 0)
	waitTerminal(t, sink, 3)

	day, ok := mgr.GetCachedDay(dates.NewDate(2024, 1, 15)).Get()
	require.True(t, ok)
	require.Len(t, day.Schedule.Slots, 1)
	assert.Equal(t, []pattern.TeamID{"A"}, day.Schedule.Slots[0].Teams)
}

func TestNewFromConfigBadPattern(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Patterns = []config.PatternConfig{{ID: "bad", CycleLength: 0}}

	_, err := NewFromConfig(conf, &storage.MockRepository{}, quietLogger())
	assert.Error(t, err)
}

// Edits in the backing store invalidate exactly the affected months.
func TestMemoryStoreChangeWiring(t *testing.T) {
	store := memory.New()
	prefs := memory.NewPreferences(pattern.Fixed42, dates.NewDate(2024, 1, 1))
	mgr, err := New(store, prefs, Options{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	store.OnChange = mgr.InvalidateRange

	sink := newTestSink()
	mgr.Subscribe(sink)

	center := dates.YearMonth{Year: 2024, Month: time.January}
	mgr.RequestViewport(context.Background(), center, ScrollNone, 0)
	waitTerminal(t, sink, 3)
	require.True(t, mgr.GetCachedDay(dates.NewDate(2024, 1, 10)).IsPresent())

	store.Put(storage.NewMockEvent("", "new event", storage.TypeMeeting, dates.NewDate(2024, 1, 10)))

	assert.True(t, mgr.GetCachedDay(dates.NewDate(2024, 1, 10)).IsAbsent(),
		"edited month must drop back to NotRequested")
	_, ok := mgr.Cache().Get(center.Next())
	assert.True(t, ok, "unaffected month stays cached")
}
