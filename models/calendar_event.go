package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies calendar entries
type EventType string

const (
	EventTypePersonal EventType = "personal"
	EventTypeClass    EventType = "class"
	EventTypeProject  EventType = "project"
	EventTypeExam     EventType = "exam"
)

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	switch t {
	case EventTypePersonal, EventTypeClass, EventTypeProject, EventTypeExam:
		return true
	}
	return false
}

// CalendarEvent is a dated entry, optionally attached to a course
type CalendarEvent struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Start       time.Time  `json:"start" db:"start_at"`
	End         *time.Time `json:"end,omitempty" db:"end_at"`
	OwnerID     uuid.UUID  `json:"owner_id" db:"owner_id"`
	CourseID    *uuid.UUID `json:"course_id,omitempty" db:"course_id"`
	Type        EventType  `json:"type" db:"type"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the CalendarEvent model
func (CalendarEvent) TableName() string {
	return "calendar_events"
}

// NewCalendarEvent creates a new CalendarEvent instance
func NewCalendarEvent(title string, start time.Time, ownerID uuid.UUID, eventType EventType) *CalendarEvent {
	now := time.Now().UTC()
	return &CalendarEvent{
		ID:        uuid.New(),
		Title:     title,
		Start:     start.UTC(),
		OwnerID:   ownerID,
		Type:      eventType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidRange reports whether end, when present, is not before start
func (e *CalendarEvent) ValidRange() bool {
	return e.End == nil || !e.End.Before(e.Start)
}
