// Package icsrepo implements storage.EventRepository over iCalendar
// data, so exported plant calendars can be overlaid on the rotation
// view without a dedicated event database.
package icsrepo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/storage"
)

// maxOccurrences caps per-event recurrence expansion for one query.
const maxOccurrences = 1000

// Repository is a read-only event repository fed by ICS documents.
// Loading replaces nothing: feeds accumulate, keyed by UID, so the last
// loaded definition of a UID wins.
type Repository struct {
	logger *slog.Logger

	mu      sync.RWMutex
	single  map[string]storage.Event
	masters map[string]recurringMaster
}

// recurringMaster is a recurring VEVENT kept unexpanded; occurrences are
// generated per query range.
type recurringMaster struct {
	event   storage.Event
	start   time.Time
	rrule   string
	exdates []time.Time
}

// New creates an empty repository. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		logger:  logger,
		single:  make(map[string]storage.Event),
		masters: make(map[string]recurringMaster),
	}
}

// LoadICS parses one iCalendar document and indexes its VEVENTs,
// returning the number of events taken. Components that fail to parse
// are skipped with a logged warning; the rest of the feed still loads.
func (r *Repository) LoadICS(rd io.Reader) (int, error) {
	cal, err := ical.NewDecoder(rd).Decode()
	if err != nil {
		return 0, fmt.Errorf("decode ICS: %w", err)
	}

	count := 0
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range cal.Events() {
		uid, err := ev.Props.Text(ical.PropUID)
		if err != nil || uid == "" {
			r.logger.Warn("skipping VEVENT without UID")
			continue
		}

		parsed, start, err := eventFromComponent(uid, ev)
		if err != nil {
			r.logger.Warn("skipping malformed VEVENT", "uid", uid, "err", err)
			continue
		}

		if rruleProp := ev.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
			r.masters[uid] = recurringMaster{
				event:   parsed,
				start:   start,
				rrule:   rruleProp.Value,
				exdates: exceptionDates(ev),
			}
			delete(r.single, uid)
		} else {
			r.single[uid] = parsed
			delete(r.masters, uid)
		}
		count++
	}

	r.logger.Info("ICS feed loaded", "events", count)
	return count, nil
}

// FindEvents implements storage.EventRepository. Recurring events are
// expanded into single-day occurrences inside [from, toExclusive).
func (r *Repository) FindEvents(_ context.Context, from, toExclusive dates.Date) ([]storage.Event, error) {
	if !from.Before(toExclusive) {
		return nil, fmt.Errorf("empty date range [%s, %s): %w", from, toExclusive, storage.ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []storage.Event
	for _, ev := range r.single {
		if ev.End().Before(from) || !ev.StartDate.Before(toExclusive) {
			continue
		}
		out = append(out, ev)
	}

	for uid, master := range r.masters {
		occurrences, err := expandMaster(master, from, toExclusive)
		if err != nil {
			r.logger.Warn("recurrence expansion failed", "uid", uid, "err", err)
			continue
		}
		out = append(out, occurrences...)
	}

	return out, nil
}

// expandMaster generates the master's occurrences intersecting the range,
// the way the recurrence engine expands an RRULE: a DTSTART line plus the
// raw rule, evaluated between the range bounds.
func expandMaster(master recurringMaster, from, toExclusive dates.Date) ([]storage.Event, error) {
	dtstart := master.start.UTC().Format("20060102T150405Z")
	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s", dtstart, master.rrule))
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", master.rrule, err)
	}
	for _, ex := range master.exdates {
		set.ExDate(ex)
	}

	span := dates.DaysBetween(master.event.StartDate, master.event.End())
	times := set.Between(from.Time(), toExclusive.Time().Add(-time.Nanosecond), true)
	if len(times) > maxOccurrences {
		times = times[:maxOccurrences]
	}

	out := make([]storage.Event, 0, len(times))
	for i, t := range times {
		occ := master.event
		occ.ID = master.event.ID + "#" + strconv.Itoa(i) + "@" + t.Format("20060102")
		occ.StartDate = dates.DateOf(t)
		if span > 0 {
			occ.EndDate = occ.StartDate.AddDays(span)
		} else {
			occ.EndDate = dates.Date{}
		}
		out = append(out, occ)
	}
	return out, nil
}

// eventFromComponent maps a VEVENT into the engine's event model.
func eventFromComponent(uid string, ev ical.Event) (storage.Event, time.Time, error) {
	start, err := ev.Props.DateTime(ical.PropDateTimeStart, nil)
	if err != nil {
		return storage.Event{}, time.Time{}, fmt.Errorf("DTSTART: %w", err)
	}

	summary, _ := ev.Props.Text(ical.PropSummary)
	location, _ := ev.Props.Text(ical.PropLocation)

	out := storage.Event{
		ID:        uid,
		Title:     summary,
		Type:      typeFromComponent(ev),
		Priority:  priorityFromComponent(ev),
		StartDate: dates.DateOf(start),
		Location:  location,
	}

	allDay := false
	if prop := ev.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
		allDay = true
	}
	out.AllDay = allDay

	end, endErr := ev.Props.DateTime(ical.PropDateTimeEnd, nil)
	if endErr != nil {
		end = start
	}

	if allDay {
		// DTEND is exclusive for all-day events.
		endDate := dates.DateOf(end)
		if endErr == nil && out.StartDate.Before(endDate) {
			endDate = endDate.AddDays(-1)
		} else {
			endDate = out.StartDate
		}
		if endDate != out.StartDate {
			out.EndDate = endDate
		}
		return out, start, nil
	}

	out.StartTime = start.Format("15:04")
	out.EndTime = end.Format("15:04")
	if endDate := dates.DateOf(end); endDate != out.StartDate {
		out.EndDate = endDate
	}
	return out, start, nil
}

// typeFromComponent maps the first recognized CATEGORIES value onto an
// event type; unrecognized or absent categories fall back to general.
func typeFromComponent(ev ical.Event) storage.EventType {
	prop := ev.Props.Get(ical.PropCategories)
	if prop == nil {
		return storage.TypeGeneral
	}
	for _, v := range strings.Split(prop.Value, ",") {
		typ := storage.EventType(strings.TrimSpace(v))
		switch typ {
		case storage.TypeTraining, storage.TypeMeeting, storage.TypeMaintenance,
			storage.TypeEmergency, storage.TypePlannedStop, storage.TypeShortage,
			storage.TypeUnplannedStop:
			return typ
		}
	}
	return storage.TypeGeneral
}

// priorityFromComponent maps the iCalendar PRIORITY scale (1 highest,
// 9 lowest) onto the engine's three-level priority.
func priorityFromComponent(ev ical.Event) storage.Priority {
	prop := ev.Props.Get(ical.PropPriority)
	if prop == nil {
		return storage.PriorityNormal
	}
	n, err := strconv.Atoi(prop.Value)
	if err != nil {
		return storage.PriorityNormal
	}
	switch {
	case n >= 1 && n <= 4:
		return storage.PriorityHigh
	case n > 5:
		return storage.PriorityLow
	default:
		return storage.PriorityNormal
	}
}

// exceptionDates collects EXDATE values; unparsable entries are dropped.
func exceptionDates(ev ical.Event) []time.Time {
	prop := ev.Props.Get(ical.PropExceptionDates)
	if prop == nil || prop.Value == "" {
		return nil
	}
	var out []time.Time
	for _, raw := range strings.Split(prop.Value, ",") {
		raw = strings.TrimSpace(raw)
		for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
			if t, err := time.Parse(layout, raw); err == nil {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
