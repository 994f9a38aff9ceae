// Package storage defines the external collaborators the engine consumes:
// the event store and the preference store. The engine never owns event
// data; it reads through these interfaces and caches derived views.
package storage

import (
	"context"
	"errors"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
)

// EventRepository is the sole source of truth for calendar events.
// Implementations may block; the engine always calls FindEvents off the
// notification thread. Please use the error types provided.
type EventRepository interface {
	// FindEvents returns all events whose date span intersects
	// [from, toExclusive). Ordering is not required; the engine sorts.
	FindEvents(ctx context.Context, from, toExclusive dates.Date) ([]Event, error)
}

// PreferenceStore exposes the user's active rotation selection. The
// engine re-reads it on demand and invalidates its whole cache when the
// selection changes.
type PreferenceStore interface {
	// ActiveRotation returns the current pattern id and the anchor date
	// at which that pattern's cycle day 0 occurred.
	ActiveRotation() (pattern.ID, dates.Date, error)
}

var (
	// ErrNotFound is returned when a requested resource doesn't exist.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput is returned when the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrRepositoryUnavailable is returned when the backing store cannot
	// be reached. The engine treats it as transient and retryable.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
