package engine

import (
	"fmt"
	"log/slog"

	"github.com/quattrodue/shiftcal/engine/config"
	"github.com/quattrodue/shiftcal/engine/storage"
)

// NewFromConfig builds a Manager from a loaded configuration: custom
// patterns from the config are registered, the config acts as the
// preference store, and tuning values carry over into Options.
func NewFromConfig(conf *config.Config, repo storage.EventRepository, logger *slog.Logger) (*Manager, error) {
	conf.Normalize()

	m, err := New(repo, config.NewPreferences(conf), Options{
		Logger:      logger,
		CacheMonths: conf.CacheMonths,
		Workers:     conf.Workers,
		RefreshCron: conf.RefreshCron,
	})
	if err != nil {
		return nil, err
	}

	for _, pc := range conf.Patterns {
		if _, err := m.RegisterPattern(pc.Spec()); err != nil {
			m.Close()
			return nil, fmt.Errorf("register config pattern %q: %w", pc.ID, err)
		}
	}
	return m, nil
}
