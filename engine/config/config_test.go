package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
)

func TestNormalizeDefaults(t *testing.T) {
	var c Config
	c.Normalize()

	assert.Equal(t, string(pattern.Fixed42), c.ActivePattern)
	assert.Equal(t, "2024-01-01", c.AnchorDate)
	assert.Equal(t, 7, c.CacheMonths)
	assert.Equal(t, 4, c.Workers)
	assert.NotNil(t, c.Patterns)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	c := Config{ActivePattern: "custom", AnchorDate: "2025-06-01", CacheMonths: 12, Workers: 2}
	c.Normalize()

	assert.Equal(t, "custom", c.ActivePattern)
	assert.Equal(t, "2025-06-01", c.AnchorDate)
	assert.Equal(t, 12, c.CacheMonths)
	assert.Equal(t, 2, c.Workers)
}

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "shiftcal.yaml")

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, string(pattern.Fixed42), conf.ActivePattern)

	info, err := os.Stat(path)
	require.NoError(t, err, "first run should leave a config file behind")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shiftcal.yaml")

	conf := DefaultConfig()
	conf.ActivePattern = "my-rotation"
	conf.AnchorDate = "2024-03-04"
	conf.RefreshCron = "*/10 * * * *"
	conf.Patterns = []PatternConfig{{
		ID:          "my-rotation",
		Name:        "Two crews",
		CycleLength: 2,
		Slots:       []SlotConfig{{Name: "day", Start: "06:00", End: "18:00"}},
		Teams:       []TeamConfig{{ID: "A"}, {ID: "B", Label: "Crew B"}},
		Assignments: [][][]string{{{"A"}}, {{"B"}}},
	}}
	require.NoError(t, Save(path, conf))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, conf.ActivePattern, loaded.ActivePattern)
	assert.Equal(t, conf.RefreshCron, loaded.RefreshCron)
	require.Len(t, loaded.Patterns, 1)

	// The embedded pattern must survive the trip and validate.
	p, err := pattern.New(loaded.Patterns[0].Spec())
	require.NoError(t, err)
	assert.Equal(t, pattern.ID("my-rotation"), p.ID)
	assert.Equal(t, []pattern.TeamID{"B"}, p.TeamsFor(1, 0))
	assert.Equal(t, "Team A", p.Teams[0].Label, "missing label defaults")
	assert.Equal(t, "Crew B", p.Teams[1].Label)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPreferences(t *testing.T) {
	conf := &Config{ActivePattern: string(pattern.Fixed32), AnchorDate: "2024-02-05"}
	conf.Normalize()

	id, anchor, err := NewPreferences(conf).ActiveRotation()
	require.NoError(t, err)
	assert.Equal(t, pattern.Fixed32, id)
	assert.Equal(t, dates.NewDate(2024, 2, 5), anchor)
}

func TestPreferencesBadAnchor(t *testing.T) {
	conf := &Config{ActivePattern: "x", AnchorDate: "soon"}
	_, _, err := NewPreferences(conf).ActiveRotation()
	assert.Error(t, err)
}
