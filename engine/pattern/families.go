package pattern

import "fmt"

// Built-in pattern family ids.
const (
	Fixed42  ID = "fixed-4-2"  // 4 work / 2 rest, continuous, 18-day cycle
	Fixed32  ID = "fixed-3-2"  // 3 work / 2 rest, continuous, 15-day cycle
	Weekly52 ID = "weekly-5-2" // 5 work / 2 rest, weekly, 7-day cycle
)

func standardSlots() []ShiftSlot {
	return []ShiftSlot{
		{Name: "morning", Start: "05:00", End: "13:00", Color: "#4FC3F7"},
		{Name: "afternoon", Start: "13:00", End: "21:00", Color: "#FFB74D"},
		{Name: "night", Start: "21:00", End: "05:00", Color: "#7986CB"},
	}
}

func nineTeams() []Team {
	teams := make([]Team, 9)
	for i := 0; i < 9; i++ {
		id := TeamID(string(rune('A' + i)))
		teams[i] = Team{ID: id, Label: fmt.Sprintf("Team %s", id)}
	}
	return teams
}

// continuousSpec builds a continuous rotation: each team works `work`
// consecutive days on a slot, rests `rest` days, then moves to the next
// slot, repeating through all slots over one full cycle. offsets[t] is
// team t's position in that per-team sequence on cycle day 0.
func continuousSpec(id ID, name string, work, rest int, slots []ShiftSlot, teams []Team, offsets []int) Spec {
	block := work + rest
	cycle := block * len(slots)

	assignments := make([][][]TeamID, cycle)
	for day := 0; day < cycle; day++ {
		daySlots := make([][]TeamID, len(slots))
		for t, team := range teams {
			p := (day + offsets[t]) % cycle
			if p%block < work {
				s := p / block
				daySlots[s] = append(daySlots[s], team.ID)
			}
		}
		assignments[day] = daySlots
	}

	return Spec{
		ID:          id,
		Name:        name,
		CycleLength: cycle,
		Slots:       slots,
		Teams:       teams,
		Assignments: assignments,
	}
}

func weeklySpec() Spec {
	slots := standardSlots()
	teams := []Team{
		{ID: "A", Label: "Team A"},
		{ID: "B", Label: "Team B"},
		{ID: "C", Label: "Team C"},
	}
	// Monday-anchored: days 0-4 work, 5-6 rest, one fixed slot per team.
	assignments := make([][][]TeamID, 7)
	for day := 0; day < 7; day++ {
		daySlots := make([][]TeamID, len(slots))
		if day < 5 {
			for s, team := range teams {
				daySlots[s] = []TeamID{team.ID}
			}
		}
		assignments[day] = daySlots
	}
	return Spec{
		ID:          Weekly52,
		Name:        "5-2 weekly",
		CycleLength: 7,
		Slots:       slots,
		Teams:       teams,
		Assignments: assignments,
	}
}

// builtins constructs the fixed pattern families. Construction is
// deterministic; a failure here is a programming error.
func builtins() []*RotationPattern {
	specs := []Spec{
		// Day 0 staffing: A,B,C morning / D,E,F afternoon / G,H,I night.
		continuousSpec(Fixed42, "4-2 continuous", 4, 2, standardSlots(), nineTeams(),
			[]int{0, 1, 2, 6, 7, 8, 12, 13, 14}),
		continuousSpec(Fixed32, "3-2 continuous", 3, 2, standardSlots(), nineTeams(),
			[]int{0, 1, 2, 5, 6, 7, 10, 11, 12}),
		weeklySpec(),
	}

	out := make([]*RotationPattern, 0, len(specs))
	for _, spec := range specs {
		p, err := New(spec)
		if err != nil {
			panic(fmt.Sprintf("pattern: built-in family %q failed validation: %v", spec.ID, err))
		}
		out = append(out, p)
	}
	return out
}
