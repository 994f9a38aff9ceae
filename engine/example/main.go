package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/quattrodue/shiftcal/engine"
	"github.com/quattrodue/shiftcal/engine/cache"
	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
	"github.com/quattrodue/shiftcal/engine/storage"
	"github.com/quattrodue/shiftcal/engine/storage/memory"
)

// consoleSink prints month state transitions the way a calendar UI would
// react to them.
type consoleSink struct {
	done chan dates.YearMonth
}

func (s *consoleSink) OnMonthStateChanged(month dates.YearMonth, state cache.LoadState, view cache.MonthView) {
	fmt.Printf("%s -> %s\n", month, state)
	if state == cache.StateAvailable || state == cache.StateError {
		s.done <- month
	}
}

func (s *consoleSink) OnLoadingProgress(month dates.YearMonth, percent int) {
	fmt.Printf("%s loading %d%%\n", month, percent)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Event store with a few sample events around January 2024.
	store := memory.New()
	store.Put(storage.Event{
		Title:     "Annual safety training",
		Type:      storage.TypeTraining,
		Priority:  storage.PriorityNormal,
		StartDate: dates.NewDate(2024, 1, 10),
		EndDate:   dates.NewDate(2024, 1, 12),
		AllDay:    true,
	})
	store.Put(storage.Event{
		Title:     "Line 2 maintenance window",
		Type:      storage.TypeMaintenance,
		Priority:  storage.PriorityHigh,
		StartDate: dates.NewDate(2024, 1, 15),
		StartTime: "06:00",
		EndTime:   "14:00",
		Location:  "Plant north wing",
	})

	prefs := memory.NewPreferences(pattern.Fixed42, dates.NewDate(2024, 1, 1))

	mgr, err := engine.New(store, prefs, engine.Options{Logger: logger})
	if err != nil {
		logger.Error("engine init failed", "err", err)
		os.Exit(1)
	}
	defer mgr.Close()

	// Keep cached months coherent with event edits.
	store.OnChange = mgr.InvalidateRange

	sink := &consoleSink{done: make(chan dates.YearMonth, 8)}
	mgr.Subscribe(sink)

	center := dates.YearMonth{Year: 2024, Month: time.January}
	mgr.RequestViewport(context.Background(), center, engine.ScrollForward, 0.5)

	// Wait for the three viewport months to publish.
	for i := 0; i < 3; i++ {
		<-sink.done
	}

	day := dates.NewDate(2024, 1, 10)
	if view, ok := mgr.GetCachedDay(day).Get(); ok {
		fmt.Printf("\n%s (cycle day %d)\n", day, view.Schedule.DayIndex)
		for _, slot := range view.Schedule.Slots {
			fmt.Printf("  %-9s %s-%s teams=%v stopped=%v\n",
				slot.Slot.Name, slot.Slot.Start, slot.Slot.End, slot.Teams, slot.IsStopped)
		}
		fmt.Printf("  resting: %v\n", view.Schedule.Resting)
		for _, ev := range view.Events {
			fmt.Printf("  event: %s (%s)\n", ev.Title, ev.Type)
		}
	}

	stats := mgr.Cache().Stats()
	fmt.Printf("\ncache: %d entries, %d available\n", stats.TotalEntries, stats.Available)
}
