// Package rotation resolves calendar dates to day schedules under a
// rotation pattern, an anchor date, and local schedule exceptions.
package rotation

import (
	"fmt"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
)

// WholeDay marks a stop that suspends every slot of its date.
const WholeDay = -1

// Supported date range. The resolver's arithmetic works on any date; this
// range is what callers driving a viewport are expected to enforce.
var (
	MinDate = dates.NewDate(1900, 1, 1)
	MaxDate = dates.NewDate(2100, 12, 31)
)

// Stop suspends one slot (or the whole day, SlotIndex == WholeDay)
// regardless of what the rotation assigns.
type Stop struct {
	SlotIndex int
}

// StopSet holds schedule exceptions keyed by date. The zero value is an
// empty set; a nil StopSet is valid and matches nothing.
type StopSet map[dates.Date][]Stop

// Add records a stop for the given date and slot index (WholeDay for the
// entire day).
func (s StopSet) Add(d dates.Date, slotIndex int) {
	s[d] = append(s[d], Stop{SlotIndex: slotIndex})
}

// stopped reports whether the given slot of d is suspended.
func (s StopSet) stopped(d dates.Date, slotIndex int) bool {
	for _, stop := range s[d] {
		if stop.SlotIndex == WholeDay || stop.SlotIndex == slotIndex {
			return true
		}
	}
	return false
}

// SlotAssignment is one resolved slot of a day: the slot template, the
// teams the rotation puts on it, and whether a stop suspends it. Teams
// are preserved on stopped slots so the UI can still show who would have
// worked.
type SlotAssignment struct {
	Slot      pattern.ShiftSlot
	SlotIndex int
	Teams     []pattern.TeamID
	IsStopped bool
}

// DaySchedule is the resolved rotation output for a single date.
// It is derived data: recomputable at any time from (pattern, anchor,
// exceptions) and never stored outside cache entries.
type DaySchedule struct {
	Date     dates.Date
	DayIndex int
	Slots    []SlotAssignment
	Resting  []pattern.TeamID
}

// DateOutOfRangeError is returned by CheckDate for dates outside the
// supported viewport range.
type DateOutOfRangeError struct {
	Date dates.Date
}

func (e *DateOutOfRangeError) Error() string {
	return fmt.Sprintf("date %s outside supported range [%s, %s]", e.Date, MinDate, MaxDate)
}

// CheckDate validates d against the supported range. The resolver itself
// accepts any date; viewport-driving callers run this first.
func CheckDate(d dates.Date) error {
	if d.Before(MinDate) || d.After(MaxDate) {
		return &DateOutOfRangeError{Date: d}
	}
	return nil
}

// Resolve maps target to its day schedule. Pure: identical inputs always
// produce identical output, and no state is carried between dates. The
// cycle day is floorMod(daysBetween(anchor, target), cycleLength), so
// dates before the anchor wrap around correctly, and any single date is
// direct-addressable without walking the cycle.
func Resolve(p *pattern.RotationPattern, anchor, target dates.Date, stops StopSet) DaySchedule {
	dayIndex := dates.FloorMod(dates.DaysBetween(anchor, target), p.CycleLength)

	slots := make([]SlotAssignment, len(p.Slots))
	for i, slot := range p.Slots {
		slots[i] = SlotAssignment{
			Slot:      slot,
			SlotIndex: i,
			Teams:     p.TeamsFor(dayIndex, i),
			IsStopped: stops.stopped(target, i),
		}
	}

	return DaySchedule{
		Date:     target,
		DayIndex: dayIndex,
		Slots:    slots,
		Resting:  p.RestingOn(dayIndex),
	}
}

// ResolveMonth resolves every date of ym in order. Each date is an
// independent Resolve call; there is no cross-date state.
func ResolveMonth(p *pattern.RotationPattern, anchor dates.Date, ym dates.YearMonth, stops StopSet) []DaySchedule {
	days := ym.Dates()
	out := make([]DaySchedule, len(days))
	for i, d := range days {
		out[i] = Resolve(p, anchor, d, stops)
	}
	return out
}
