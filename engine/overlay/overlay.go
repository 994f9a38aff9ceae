// Package overlay expands raw events into per-day buckets and merges
// them with resolved day schedules into display-ready day views.
package overlay

import (
	"fmt"
	"sort"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/rotation"
	"github.com/quattrodue/shiftcal/engine/storage"
)

// MaxSpanDays caps per-event expansion so a corrupt span cannot run away.
// Events hitting the cap keep the days processed so far and record a
// truncation warning.
const MaxSpanDays = 365

// WarnKind classifies span anomalies found during expansion.
type WarnKind string

const (
	// WarnEndBeforeStart: end_date < start_date; the event was clamped to
	// a single day on start_date.
	WarnEndBeforeStart WarnKind = "end_before_start"
	// WarnSpanTruncated: the span exceeded MaxSpanDays and was cut short.
	WarnSpanTruncated WarnKind = "span_truncated"
)

// SpanWarning records a non-fatal anomaly for one event. The event is
// still displayed; the warning exists for logging and diagnostics.
type SpanWarning struct {
	EventID string
	Kind    WarnKind
	Start   dates.Date
	End     dates.Date
}

func (w SpanWarning) String() string {
	return fmt.Sprintf("event %s: %s (span %s..%s)", w.EventID, w.Kind, w.Start, w.End)
}

// ExpandResult wraps the per-date buckets and any span anomalies found.
type ExpandResult struct {
	Buckets  map[dates.Date][]storage.Event
	Warnings []SpanWarning
}

// Expand buckets every event under each date of its inclusive
// [start, end] span. Order-independent and idempotent: each bucket is
// sorted by event start date with ties broken by event id, so the same
// input always yields the same buckets regardless of input order.
func Expand(events []storage.Event) ExpandResult {
	result := ExpandResult{Buckets: make(map[dates.Date][]storage.Event)}

	for _, ev := range events {
		start := ev.StartDate
		end := ev.End()

		if end.Before(start) {
			result.Warnings = append(result.Warnings, SpanWarning{
				EventID: ev.ID,
				Kind:    WarnEndBeforeStart,
				Start:   start,
				End:     end,
			})
			end = start
		}

		d := start
		for i := 0; ; i++ {
			if i >= MaxSpanDays {
				result.Warnings = append(result.Warnings, SpanWarning{
					EventID: ev.ID,
					Kind:    WarnSpanTruncated,
					Start:   start,
					End:     end,
				})
				break
			}
			result.Buckets[d] = append(result.Buckets[d], ev)
			if d == end {
				break
			}
			d = d.AddDays(1)
		}
	}

	for d, bucket := range result.Buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].StartDate != bucket[j].StartDate {
				return bucket[i].StartDate.Before(bucket[j].StartDate)
			}
			return bucket[i].ID < bucket[j].ID
		})
		result.Buckets[d] = bucket
	}

	return result
}

// DayView is the display-ready merge of one day's rotation schedule and
// its overlaid events. This is the unit cached and handed to the UI.
type DayView struct {
	Schedule rotation.DaySchedule
	// Events applicable to this date after multi-day expansion. Never nil.
	Events     []storage.Event
	EventCount int
	// DominantColor is the color of the most severe event, or "" when the
	// day has no events.
	DominantColor string
}

// Merge joins a resolved day schedule with the expanded event buckets.
// Pure: a date with no bucket gets an empty (non-nil) event list.
func Merge(sched rotation.DaySchedule, buckets map[dates.Date][]storage.Event) DayView {
	events := buckets[sched.Date]
	if events == nil {
		events = []storage.Event{}
	}

	return DayView{
		Schedule:      sched,
		Events:        events,
		EventCount:    len(events),
		DominantColor: dominantColor(events),
	}
}

// dominantColor picks the color of the highest-severity event; ties go
// to the first occurrence in bucket order.
func dominantColor(events []storage.Event) string {
	if len(events) == 0 {
		return ""
	}
	best := events[0]
	for _, ev := range events[1:] {
		if ev.Type.Severity() > best.Type.Severity() {
			best = ev
		}
	}
	return best.Type.Color()
}
