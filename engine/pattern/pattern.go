// Package pattern defines rotation patterns: the repeating cycle of
// team/slot assignments a work-shift calendar is resolved against.
package pattern

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// MaxCycleLength bounds user-defined and imported patterns.
const MaxCycleLength = 365

// ID identifies a registered rotation pattern.
type ID string

// TeamID identifies a team within a pattern.
type TeamID string

// Team is one rotating crew. Teams are fixed at pattern construction.
type Team struct {
	ID    TeamID
	Label string
}

// ShiftSlot is one work period within a day. Start/End are times of day
// in HH:MM form; End before Start means the slot crosses midnight.
type ShiftSlot struct {
	Name  string
	Start string
	End   string
	// Color is a display hint, 6-character HEX with # prefix.
	Color string
}

// RotationPattern is an immutable description of a repeating schedule.
// Construct via New; instances are shared by reference and must not be
// mutated after registration.
type RotationPattern struct {
	ID          ID
	Name        string
	CycleLength int
	Slots       []ShiftSlot
	Teams       []Team

	// assignments[dayIndex][slotIndex] lists the teams working that slot
	// on that cycle day. Teams absent from every slot of a day are resting.
	assignments [][][]TeamID
}

// Spec is the raw material New validates into a RotationPattern.
type Spec struct {
	ID          ID
	Name        string
	CycleLength int
	Slots       []ShiftSlot
	Teams       []Team
	// Assignments indexed as [dayIndex][slotIndex] -> team IDs working.
	Assignments [][][]TeamID
}

// InvalidPatternError reports the first violation of the pattern
// completeness invariant found during construction.
type InvalidPatternError struct {
	PatternName string
	Reason      string
	Day         int
	Slot        int
	Team        TeamID
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s (day=%d slot=%d team=%q)",
		e.PatternName, e.Reason, e.Day, e.Slot, e.Team)
}

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// New validates spec and returns an immutable pattern. The assignment
// table must cover every day of the cycle, reference only declared teams
// and slots, and place each team in at most one slot per day (a team is
// either working exactly one slot or resting). Violations return an
// *InvalidPatternError naming the first offending day/slot/team.
func New(spec Spec) (*RotationPattern, error) {
	if spec.CycleLength < 1 || spec.CycleLength > MaxCycleLength {
		return nil, &InvalidPatternError{
			PatternName: spec.Name,
			Reason:      fmt.Sprintf("cycle length %d outside [1, %d]", spec.CycleLength, MaxCycleLength),
		}
	}
	if len(spec.Slots) == 0 {
		return nil, &InvalidPatternError{PatternName: spec.Name, Reason: "no shift slots"}
	}
	if len(spec.Teams) == 0 {
		return nil, &InvalidPatternError{PatternName: spec.Name, Reason: "no teams"}
	}
	for i, slot := range spec.Slots {
		if !timeOfDayRe.MatchString(slot.Start) || !timeOfDayRe.MatchString(slot.End) {
			return nil, &InvalidPatternError{
				PatternName: spec.Name,
				Reason:      fmt.Sprintf("slot %q has malformed time of day %q-%q", slot.Name, slot.Start, slot.End),
				Slot:        i,
			}
		}
	}

	known := make(map[TeamID]bool, len(spec.Teams))
	for _, team := range spec.Teams {
		if known[team.ID] {
			return nil, &InvalidPatternError{
				PatternName: spec.Name,
				Reason:      "duplicate team id",
				Team:        team.ID,
			}
		}
		known[team.ID] = true
	}

	if len(spec.Assignments) != spec.CycleLength {
		return nil, &InvalidPatternError{
			PatternName: spec.Name,
			Reason: fmt.Sprintf("assignment table covers %d days, cycle is %d",
				len(spec.Assignments), spec.CycleLength),
		}
	}

	assignments := make([][][]TeamID, spec.CycleLength)
	for day, slots := range spec.Assignments {
		if len(slots) != len(spec.Slots) {
			return nil, &InvalidPatternError{
				PatternName: spec.Name,
				Reason:      fmt.Sprintf("day has %d slot entries, pattern has %d slots", len(slots), len(spec.Slots)),
				Day:         day,
			}
		}
		seen := make(map[TeamID]int, len(spec.Teams))
		daySlots := make([][]TeamID, len(slots))
		for slotIdx, teams := range slots {
			cp := make([]TeamID, len(teams))
			copy(cp, teams)
			daySlots[slotIdx] = cp
			for _, id := range teams {
				if !known[id] {
					return nil, &InvalidPatternError{
						PatternName: spec.Name,
						Reason:      "assignment references undeclared team",
						Day:         day,
						Slot:        slotIdx,
						Team:        id,
					}
				}
				if prev, dup := seen[id]; dup {
					return nil, &InvalidPatternError{
						PatternName: spec.Name,
						Reason:      fmt.Sprintf("team assigned to both slot %d and slot %d on the same day", prev, slotIdx),
						Day:         day,
						Slot:        slotIdx,
						Team:        id,
					}
				}
				seen[id] = slotIdx
			}
		}
		assignments[day] = daySlots
	}

	id := spec.ID
	if id == "" {
		id = ID(uuid.New().String())
	}

	slots := make([]ShiftSlot, len(spec.Slots))
	copy(slots, spec.Slots)
	teams := make([]Team, len(spec.Teams))
	copy(teams, spec.Teams)

	return &RotationPattern{
		ID:          id,
		Name:        spec.Name,
		CycleLength: spec.CycleLength,
		Slots:       slots,
		Teams:       teams,
		assignments: assignments,
	}, nil
}

// TeamsFor returns the teams working the given slot on the given cycle
// day. The returned slice must not be modified.
func (p *RotationPattern) TeamsFor(dayIndex, slotIndex int) []TeamID {
	return p.assignments[dayIndex][slotIndex]
}

// RestingOn returns the teams with no slot assignment on the given cycle day.
func (p *RotationPattern) RestingOn(dayIndex int) []TeamID {
	working := make(map[TeamID]bool, len(p.Teams))
	for _, teams := range p.assignments[dayIndex] {
		for _, id := range teams {
			working[id] = true
		}
	}
	var resting []TeamID
	for _, team := range p.Teams {
		if !working[team.ID] {
			resting = append(resting, team.ID)
		}
	}
	return resting
}
