package pattern

import (
	"fmt"
	"sync"
)

// PatternNotFoundError is returned when resolving an unregistered pattern id.
type PatternNotFoundError struct {
	ID ID
}

func (e *PatternNotFoundError) Error() string {
	return fmt.Sprintf("pattern not found: %q", e.ID)
}

// Registry holds registered patterns. Patterns are immutable once
// registered, so lookups hand out shared references.
type Registry struct {
	mu       sync.RWMutex
	patterns map[ID]*RotationPattern
}

// NewRegistry returns a registry preloaded with the built-in families.
func NewRegistry() *Registry {
	r := &Registry{patterns: make(map[ID]*RotationPattern)}
	for _, p := range builtins() {
		r.patterns[p.ID] = p
	}
	return r
}

// Register validates spec and stores the resulting pattern, returning its
// id. Registering over an existing id replaces it.
func (r *Registry) Register(spec Spec) (ID, error) {
	p, err := New(spec)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.patterns[p.ID] = p
	r.mu.Unlock()
	return p.ID, nil
}

// Resolve returns the pattern for id, or a *PatternNotFoundError.
func (r *Registry) Resolve(id ID) (*RotationPattern, error) {
	r.mu.RLock()
	p, ok := r.patterns[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &PatternNotFoundError{ID: id}
	}
	return p, nil
}

// IDs returns the ids of all registered patterns, in no particular order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ID, 0, len(r.patterns))
	for id := range r.patterns {
		out = append(out, id)
	}
	return out
}
