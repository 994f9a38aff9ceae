// Package config provides YAML-based engine configuration: the active
// rotation selection, engine tuning, and user-authored custom patterns.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
)

// SlotConfig describes one shift slot of a custom pattern.
type SlotConfig struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// TeamConfig describes one team of a custom pattern.
type TeamConfig struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// PatternConfig is a user-authored rotation pattern. Assignments is
// indexed [day][slot] and lists the team ids working that slot.
type PatternConfig struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	CycleLength int          `yaml:"cycle_length" json:"cycle_length"`
	Slots       []SlotConfig `yaml:"slots" json:"slots"`
	Teams       []TeamConfig `yaml:"teams" json:"teams"`
	Assignments [][][]string `yaml:"assignments" json:"assignments"`
}

// Spec converts the config form into a pattern.Spec for registration.
func (pc PatternConfig) Spec() pattern.Spec {
	slots := make([]pattern.ShiftSlot, len(pc.Slots))
	for i, s := range pc.Slots {
		slots[i] = pattern.ShiftSlot{Name: s.Name, Start: s.Start, End: s.End, Color: s.Color}
	}
	teams := make([]pattern.Team, len(pc.Teams))
	for i, t := range pc.Teams {
		label := t.Label
		if label == "" {
			label = "Team " + t.ID
		}
		teams[i] = pattern.Team{ID: pattern.TeamID(t.ID), Label: label}
	}
	assignments := make([][][]pattern.TeamID, len(pc.Assignments))
	for day, daySlots := range pc.Assignments {
		assignments[day] = make([][]pattern.TeamID, len(daySlots))
		for s, ids := range daySlots {
			teamIDs := make([]pattern.TeamID, len(ids))
			for k, id := range ids {
				teamIDs[k] = pattern.TeamID(id)
			}
			assignments[day][s] = teamIDs
		}
	}
	return pattern.Spec{
		ID:          pattern.ID(pc.ID),
		Name:        pc.Name,
		CycleLength: pc.CycleLength,
		Slots:       slots,
		Teams:       teams,
		Assignments: assignments,
	}
}

// Config is the top-level engine configuration.
type Config struct {
	// ActivePattern is the id of the rotation pattern in use.
	ActivePattern string `yaml:"active_pattern" json:"active_pattern"`

	// AnchorDate is the ISO date at which the active pattern's cycle
	// day 0 occurred.
	AnchorDate string `yaml:"anchor_date" json:"anchor_date"`

	// CacheMonths bounds the viewport cache.
	CacheMonths int `yaml:"cache_months" json:"cache_months"`

	// Workers bounds concurrent repository fetches.
	Workers int `yaml:"workers" json:"workers"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// periodic refresh of cached months. Empty disables auto refresh.
	RefreshCron string `yaml:"refresh,omitempty" json:"refresh,omitempty"`

	// Patterns holds user-authored custom patterns registered at startup.
	Patterns []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		ActivePattern: string(pattern.Fixed42),
		AnchorDate:    "2024-01-01",
		CacheMonths:   7,
		Workers:       4,
		RefreshCron:   "",
		Patterns:      []PatternConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.ActivePattern == "" {
		c.ActivePattern = string(pattern.Fixed42)
	}
	if c.AnchorDate == "" {
		c.AnchorDate = "2024-01-01"
	}
	if c.CacheMonths <= 0 {
		c.CacheMonths = 7
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Patterns == nil {
		c.Patterns = []PatternConfig{}
	}
}

// Load reads the config at path. A missing file yields defaults, written
// back to path with 0600 permissions so the first run leaves an editable
// file behind.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			conf := DefaultConfig()
			if saveErr := Save(path, conf); saveErr != nil {
				return nil, fmt.Errorf("write initial config: %w", saveErr)
			}
			return conf, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	conf.Normalize()
	return &conf, nil
}

// Save writes conf to path with 0600 permissions, creating parent
// directories as needed.
func Save(path string, conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Preferences adapts a Config into a storage.PreferenceStore.
type Preferences struct {
	conf *Config
}

// NewPreferences wraps conf as a preference store.
func NewPreferences(conf *Config) *Preferences {
	return &Preferences{conf: conf}
}

// ActiveRotation implements storage.PreferenceStore.
func (p *Preferences) ActiveRotation() (pattern.ID, dates.Date, error) {
	anchor, err := dates.ParseDate(p.conf.AnchorDate)
	if err != nil {
		return "", dates.Date{}, fmt.Errorf("anchor date: %w", err)
	}
	return pattern.ID(p.conf.ActivePattern), anchor, nil
}
