package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quattrodue/shiftcal/engine/dates"
	"github.com/quattrodue/shiftcal/engine/pattern"
)

// MockRepository implements the EventRepository interface for testing
type MockRepository struct {
	mock.Mock
}

// FindEvents implements the EventRepository interface
func (m *MockRepository) FindEvents(ctx context.Context, from, toExclusive dates.Date) ([]Event, error) {
	args := m.Called(ctx, from, toExclusive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

// MockPreferences implements the PreferenceStore interface for testing
type MockPreferences struct {
	mock.Mock
}

// ActiveRotation implements the PreferenceStore interface
func (m *MockPreferences) ActiveRotation() (pattern.ID, dates.Date, error) {
	args := m.Called()
	return args.Get(0).(pattern.ID), args.Get(1).(dates.Date), args.Error(2)
}

// --- Helper methods for creating test data ---

// NewMockEvent creates a single-day test event
func NewMockEvent(id, title string, typ EventType, day dates.Date) Event {
	return Event{
		ID:        id,
		Title:     title,
		Type:      typ,
		Priority:  PriorityNormal,
		StartDate: day,
		StartTime: "09:00",
		EndTime:   "10:00",
	}
}

// NewMockSpanEvent creates a multi-day all-day test event
func NewMockSpanEvent(id, title string, typ EventType, start, end dates.Date) Event {
	return Event{
		ID:        id,
		Title:     title,
		Type:      typ,
		Priority:  PriorityNormal,
		StartDate: start,
		EndDate:   end,
		AllDay:    true,
	}
}
