package storage

import (
	"github.com/quattrodue/shiftcal/engine/dates"
)

// EventType classifies an event for display and dominant-color selection.
type EventType string

const (
	TypeGeneral       EventType = "general"
	TypeTraining      EventType = "training"
	TypeMeeting       EventType = "meeting"
	TypeMaintenance   EventType = "maintenance"
	TypeEmergency     EventType = "emergency"
	TypePlannedStop   EventType = "planned_stop"
	TypeShortage      EventType = "shortage"
	TypeUnplannedStop EventType = "unplanned_stop"
)

// Severity ranks event types for dominant-color selection; higher wins.
// NOTE: this order is inferred from current display behavior and has not
// been confirmed as business priority.
func (t EventType) Severity() int {
	switch t {
	case TypeUnplannedStop:
		return 7
	case TypeShortage:
		return 6
	case TypePlannedStop:
		return 5
	case TypeEmergency:
		return 4
	case TypeMaintenance:
		return 3
	case TypeMeeting:
		return 2
	case TypeTraining:
		return 1
	default:
		return 0
	}
}

// Color returns the display color for the event type, 6-character HEX
// with # prefix.
func (t EventType) Color() string {
	switch t {
	case TypeUnplannedStop:
		return "#D32F2F"
	case TypeShortage:
		return "#F57C00"
	case TypePlannedStop:
		return "#FBC02D"
	case TypeEmergency:
		return "#C2185B"
	case TypeMaintenance:
		return "#7B1FA2"
	case TypeMeeting:
		return "#1976D2"
	case TypeTraining:
		return "#388E3C"
	default:
		return "#616161"
	}
}

// Priority is the user-assigned importance of an event.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Event is one calendar event as owned by the external store. Read-only
// to the engine.
type Event struct {
	ID       string
	Title    string
	Type     EventType
	Priority Priority

	StartDate dates.Date
	// EndDate zero means a single-day event ending on StartDate.
	EndDate dates.Date

	// StartTime/EndTime are times of day in HH:MM form; ignored when
	// AllDay is set.
	StartTime string
	EndTime   string
	AllDay    bool

	Location string
}

// End returns the effective end date: EndDate, or StartDate for
// single-day events.
func (e Event) End() dates.Date {
	if e.EndDate.IsZero() {
		return e.StartDate
	}
	return e.EndDate
}
