// memory based implementation for testing and examples
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
	"github.com/quattrodue/shiftcal/engine/storage"
)

// Store implements storage.EventRepository over in-memory maps and adds
// the CRUD surface an event editor needs. OnChange, when set, is invoked
// after every mutation with the affected date span; wiring it to the
// engine's InvalidateRange keeps cached months coherent.
type Store struct {
	mu     sync.RWMutex
	events map[string]storage.Event

	OnChange func(from, to dates.Date)
}

// New creates a new in-memory event store
func New() *Store {
	return &Store{events: make(map[string]storage.Event)}
}

// FindEvents returns events whose span intersects [from, toExclusive).
func (s *Store) FindEvents(_ context.Context, from, toExclusive dates.Date) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.Event
	for _, ev := range s.events {
		if ev.End().Before(from) {
			continue
		}
		if !ev.StartDate.Before(toExclusive) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Put inserts or replaces an event, minting an id if absent, and returns
// the stored event.
func (s *Store) Put(ev storage.Event) storage.Event {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	s.mu.Lock()
	prev, existed := s.events[ev.ID]
	s.events[ev.ID] = ev
	s.mu.Unlock()

	from, to := ev.StartDate, ev.End()
	if existed {
		// Old span must be invalidated too when the event moved.
		if prev.StartDate.Before(from) {
			from = prev.StartDate
		}
		if prev.End().After(to) {
			to = prev.End()
		}
	}
	s.notify(from, to)
	return ev
}

// Delete removes an event by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	ev, ok := s.events[id]
	if ok {
		delete(s.events, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("delete event %q: %w", id, storage.ErrNotFound)
	}
	s.notify(ev.StartDate, ev.End())
	return nil
}

// Get returns an event by id.
func (s *Store) Get(id string) (storage.Event, error) {
	s.mu.RLock()
	ev, ok := s.events[id]
	s.mu.RUnlock()
	if !ok {
		return storage.Event{}, fmt.Errorf("get event %q: %w", id, storage.ErrNotFound)
	}
	return ev, nil
}

func (s *Store) notify(from, to dates.Date) {
	if s.OnChange != nil {
		s.OnChange(from, to)
	}
}

// Preferences is a trivial in-memory storage.PreferenceStore.
type Preferences struct {
	mu      sync.RWMutex
	pattern pattern.ID
	anchor  dates.Date
}

// NewPreferences creates a preference store with the given selection.
func NewPreferences(id pattern.ID, anchor dates.Date) *Preferences {
	return &Preferences{pattern: id, anchor: anchor}
}

// ActiveRotation implements storage.PreferenceStore.
func (p *Preferences) ActiveRotation() (pattern.ID, dates.Date, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pattern == "" {
		return "", dates.Date{}, fmt.Errorf("active rotation: %w", storage.ErrNotFound)
	}
	return p.pattern, p.anchor, nil
}

// SetActiveRotation updates the selection. The caller is responsible for
// invalidating the engine cache afterwards.
func (p *Preferences) SetActiveRotation(id pattern.ID, anchor dates.Date) {
	p.mu.Lock()
	p.pattern = id
	p.anchor = anchor
	p.mu.Unlock()
}
