// Package patternxml reads and writes the XML exchange format for
// rotation patterns, used to import user-authored patterns from other
// installations.
package patternxml

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/quattrodue/shiftcal/engine/pattern"
)

// Parse reads one <rotation-pattern> document into a pattern.Spec. The
// spec still has to go through pattern validation; Parse only checks
// structural well-formedness.
func Parse(r io.Reader) (pattern.Spec, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return pattern.Spec{}, fmt.Errorf("read pattern document: %w", err)
	}

	root := doc.SelectElement("rotation-pattern")
	if root == nil {
		return pattern.Spec{}, fmt.Errorf("missing rotation-pattern root element")
	}

	cycleAttr := root.SelectAttrValue("cycle-length", "")
	cycle, err := strconv.Atoi(cycleAttr)
	if err != nil {
		return pattern.Spec{}, fmt.Errorf("bad cycle-length %q: %w", cycleAttr, err)
	}
	if cycle < 1 || cycle > pattern.MaxCycleLength {
		return pattern.Spec{}, fmt.Errorf("cycle-length %d out of range [1, %d]", cycle, pattern.MaxCycleLength)
	}

	spec := pattern.Spec{
		ID:          pattern.ID(root.SelectAttrValue("id", "")),
		Name:        root.SelectAttrValue("name", ""),
		CycleLength: cycle,
	}

	if slots := root.SelectElement("slots"); slots != nil {
		for _, el := range slots.SelectElements("slot") {
			spec.Slots = append(spec.Slots, pattern.ShiftSlot{
				Name:  el.SelectAttrValue("name", ""),
				Start: el.SelectAttrValue("start", ""),
				End:   el.SelectAttrValue("end", ""),
				Color: el.SelectAttrValue("color", ""),
			})
		}
	}

	if teams := root.SelectElement("teams"); teams != nil {
		for _, el := range teams.SelectElements("team") {
			id := el.SelectAttrValue("id", "")
			label := el.SelectAttrValue("label", "")
			if label == "" {
				label = "Team " + id
			}
			spec.Teams = append(spec.Teams, pattern.Team{ID: pattern.TeamID(id), Label: label})
		}
	}

	days := root.SelectElement("days")
	if days == nil {
		return pattern.Spec{}, fmt.Errorf("missing days element")
	}
	spec.Assignments = make([][][]pattern.TeamID, cycle)
	for _, dayEl := range days.SelectElements("day") {
		idxAttr := dayEl.SelectAttrValue("index", "")
		idx, err := strconv.Atoi(idxAttr)
		if err != nil || idx < 0 || idx >= cycle {
			return pattern.Spec{}, fmt.Errorf("bad day index %q for cycle length %d", idxAttr, cycle)
		}
		daySlots := make([][]pattern.TeamID, len(spec.Slots))
		for _, slotEl := range dayEl.SelectElements("slot-assignment") {
			slotAttr := slotEl.SelectAttrValue("slot", "")
			slotIdx, err := strconv.Atoi(slotAttr)
			if err != nil || slotIdx < 0 || slotIdx >= len(spec.Slots) {
				return pattern.Spec{}, fmt.Errorf("bad slot index %q on day %d", slotAttr, idx)
			}
			daySlots[slotIdx] = parseTeamList(slotEl.SelectAttrValue("teams", ""))
		}
		spec.Assignments[idx] = daySlots
	}
	for idx, daySlots := range spec.Assignments {
		if daySlots == nil {
			return pattern.Spec{}, fmt.Errorf("day %d missing from document", idx)
		}
	}

	return spec, nil
}

func parseTeamList(s string) []pattern.TeamID {
	fields := strings.Fields(s)
	out := make([]pattern.TeamID, 0, len(fields))
	for _, f := range fields {
		out = append(out, pattern.TeamID(f))
	}
	return out
}

// Marshal renders p into the XML exchange format.
func Marshal(p *pattern.RotationPattern) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("rotation-pattern")
	root.CreateAttr("id", string(p.ID))
	root.CreateAttr("name", p.Name)
	root.CreateAttr("cycle-length", strconv.Itoa(p.CycleLength))

	slots := root.CreateElement("slots")
	for _, slot := range p.Slots {
		el := slots.CreateElement("slot")
		el.CreateAttr("name", slot.Name)
		el.CreateAttr("start", slot.Start)
		el.CreateAttr("end", slot.End)
		if slot.Color != "" {
			el.CreateAttr("color", slot.Color)
		}
	}

	teams := root.CreateElement("teams")
	for _, team := range p.Teams {
		el := teams.CreateElement("team")
		el.CreateAttr("id", string(team.ID))
		el.CreateAttr("label", team.Label)
	}

	days := root.CreateElement("days")
	for day := 0; day < p.CycleLength; day++ {
		dayEl := days.CreateElement("day")
		dayEl.CreateAttr("index", strconv.Itoa(day))
		for slotIdx := range p.Slots {
			ids := p.TeamsFor(day, slotIdx)
			slotEl := dayEl.CreateElement("slot-assignment")
			slotEl.CreateAttr("slot", strconv.Itoa(slotIdx))
			slotEl.CreateAttr("teams", joinTeamList(ids))
		}
	}

	doc.Indent(2)
	var sb strings.Builder
	if _, err := doc.WriteTo(&sb); err != nil {
		return nil, fmt.Errorf("write pattern document: %w", err)
	}
	return []byte(sb.String()), nil
}

func joinTeamList(ids []pattern.TeamID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " ")
}
