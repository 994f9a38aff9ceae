package patternxml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quattrodue/shiftcal/engine/pattern"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rotation-pattern id="imported" name="Imported rotation" cycle-length="2">
  <slots>
    <slot name="day" start="06:00" end="18:00" color="#4FC3F7"/>
    <slot name="night" start="18:00" end="06:00"/>
  </slots>
  <teams>
    <team id="A" label="Team A"/>
    <team id="B"/>
  </teams>
  <days>
    <day index="0">
      <slot-assignment slot="0" teams="A"/>
      <slot-assignment slot="1" teams="B"/>
    </day>
    <day index="1">
      <slot-assignment slot="0" teams="B"/>
      <slot-assignment slot="1" teams="A"/>
    </day>
  </days>
</rotation-pattern>`

func TestParse(t *testing.T) {
	spec, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, pattern.ID("imported"), spec.ID)
	assert.Equal(t, 2, spec.CycleLength)
	require.Len(t, spec.Slots, 2)
	assert.Equal(t, "#4FC3F7", spec.Slots[0].Color)
	require.Len(t, spec.Teams, 2)
	assert.Equal(t, "Team B", spec.Teams[1].Label, "missing label defaults")

	p, err := pattern.New(spec)
	require.NoError(t, err)
	assert.Equal(t, []pattern.TeamID{"A"}, p.TeamsFor(0, 0))
	assert.Equal(t, []pattern.TeamID{"A"}, p.TeamsFor(1, 1))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "nope"},
		{"wrong root", `<calendar/>`},
		{"bad cycle length", `<rotation-pattern cycle-length="x"><days/></rotation-pattern>`},
		{"negative cycle length", `<rotation-pattern cycle-length="-3"><days/></rotation-pattern>`},
		{"zero cycle length", `<rotation-pattern cycle-length="0"><days/></rotation-pattern>`},
		{"oversized cycle length", `<rotation-pattern cycle-length="100000"><days/></rotation-pattern>`},
		{"missing days", `<rotation-pattern cycle-length="1"/>`},
		{"day index out of range", `<rotation-pattern cycle-length="1"><days><day index="3"/></days></rotation-pattern>`},
		{"missing day", `<rotation-pattern cycle-length="2"><days><day index="0"/></days></rotation-pattern>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	reg := pattern.NewRegistry()
	p, err := reg.Resolve(pattern.Weekly52)
	require.NoError(t, err)

	data, err := Marshal(p)
	require.NoError(t, err)

	spec, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)

	back, err := pattern.New(spec)
	require.NoError(t, err)
	assert.Equal(t, p.ID, back.ID)
	assert.Equal(t, p.CycleLength, back.CycleLength)
	assert.Equal(t, p.Teams, back.Teams)
	for day := 0; day < p.CycleLength; day++ {
		for slot := range p.Slots {
			assert.Equal(t, p.TeamsFor(day, slot), back.TeamsFor(day, slot),
				"day %d slot %d", day, slot)
		}
	}
}
