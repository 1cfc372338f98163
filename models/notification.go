package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies notifications
type NotificationType string

const (
	NotificationTypeInfo     NotificationType = "info"
	NotificationTypeCourse   NotificationType = "course"
	NotificationTypeEvent    NotificationType = "event"
	NotificationTypeResource NotificationType = "resource"
	NotificationTypeSystem   NotificationType = "system"
)

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeInfo, NotificationTypeCourse, NotificationTypeEvent,
		NotificationTypeResource, NotificationTypeSystem:
		return true
	}
	return false
}

// Notification is addressed to exactly one recipient
type Notification struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	Title           string           `json:"title" db:"title"`
	Message         string           `json:"message" db:"message"`
	RecipientID     uuid.UUID        `json:"recipient_id" db:"recipient_id"`
	SenderID        *uuid.UUID       `json:"sender_id,omitempty" db:"sender_id"`
	RelatedCourseID *uuid.UUID       `json:"related_course_id,omitempty" db:"related_course_id"`
	Type            NotificationType `json:"type" db:"type"`
	IsRead          bool             `json:"is_read" db:"is_read"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// FanOut builds one notification per distinct recipient, preserving order
func FanOut(title, message string, notificationType NotificationType, senderID, courseID *uuid.UUID, recipients []uuid.UUID) []*Notification {
	now := time.Now().UTC()
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	out := make([]*Notification, 0, len(recipients))
	for _, r := range recipients {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, &Notification{
			ID:              uuid.New(),
			Title:           title,
			Message:         message,
			RecipientID:     r,
			SenderID:        senderID,
			RelatedCourseID: courseID,
			Type:            notificationType,
			CreatedAt:       now,
		})
	}
	return out
}
