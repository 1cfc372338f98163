package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLoginSucceeded      AuditAction = "login_succeeded"
	AuditActionLoginFailed         AuditAction = "login_failed"
	AuditActionUserRegistered      AuditAction = "user_registered"
	AuditActionUserCreated         AuditAction = "user_created"
	AuditActionUserUpdated         AuditAction = "user_updated"
	AuditActionUserDeleted         AuditAction = "user_deleted"
	AuditActionCourseCreated       AuditAction = "course_created"
	AuditActionCourseUpdated       AuditAction = "course_updated"
	AuditActionCourseDeleted       AuditAction = "course_deleted"
	AuditActionStudentsAssigned    AuditAction = "students_assigned"
	AuditActionStudentRemoved      AuditAction = "student_removed"
	AuditActionEventCreated        AuditAction = "event_created"
	AuditActionEventUpdated        AuditAction = "event_updated"
	AuditActionEventDeleted        AuditAction = "event_deleted"
	AuditActionResourceCreated     AuditAction = "resource_created"
	AuditActionResourceUpdated     AuditAction = "resource_updated"
	AuditActionResourceDeleted     AuditAction = "resource_deleted"
	AuditActionNotificationSent    AuditAction = "notification_sent"
	AuditActionNotificationDeleted AuditAction = "notification_deleted"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ActorID      *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // course, event, resource, notification, user
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details" db:"details"` // JSONB for flexible metadata
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		Details:      json.RawMessage("{}"),
		Timestamp:    time.Now().UTC(),
	}
}

// WithActor sets the acting principal
func (a *AuditLog) WithActor(actorID uuid.UUID) *AuditLog {
	if actorID != uuid.Nil {
		a.ActorID = &actorID
	}
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
