// Package calendar implements calendar events, optionally attached to a course.
package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/audit"
	"github.com/unistudious/backend/services/authz"
	"go.uber.org/zap"
)

// CreateInput holds the fields of a new event
type CreateInput struct {
	Title       string
	Description string
	Start       time.Time
	End         *time.Time
	CourseID    *uuid.UUID
	Type        models.EventType
}

// UpdateInput holds the fields to merge into an event. Nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	ClearEnd    bool
	Type        *models.EventType
}

// EventService handles calendar operations
type EventService struct {
	events  repositories.EventRepository
	courses repositories.CourseRepository
	guard   *authz.Guard
	audit   audit.Recorder
	logger  *zap.Logger
}

// NewEventService creates a new EventService instance
func NewEventService(events repositories.EventRepository, courses repositories.CourseRepository, recorder audit.Recorder, logger *zap.Logger) *EventService {
	return &EventService{
		events:  events,
		courses: courses,
		guard:   authz.NewGuard(),
		audit:   recorder,
		logger:  logger,
	}
}

// Create creates an event owned by the principal
func (s *EventService) Create(ctx context.Context, p models.Principal, in CreateInput) (*models.CalendarEvent, error) {
	if err := s.guard.CheckRole(p, authz.ResourceEvent, authz.OpCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, services.NewValidationError("title", "title is required")
	}
	if in.Start.IsZero() {
		return nil, services.NewValidationError("start", "start is required")
	}
	if in.Type == "" {
		in.Type = models.EventTypePersonal
	}
	if !in.Type.Valid() {
		return nil, services.NewValidationError("type", "type must be one of personal, class, project, exam")
	}

	event := models.NewCalendarEvent(strings.TrimSpace(in.Title), in.Start, p.ID, in.Type)
	event.Description = in.Description
	if in.End != nil {
		end := in.End.UTC()
		event.End = &end
	}
	if !event.ValidRange() {
		return nil, services.ErrInvalidRange
	}

	if in.CourseID != nil {
		if err := s.checkCourse(ctx, p, *in.CourseID); err != nil {
			return nil, err
		}
		courseID := *in.CourseID
		event.CourseID = &courseID
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, services.WrapInternal("failed to create event", err)
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionEventCreated, string(authz.ResourceEvent)).
		WithActor(p.ID).
		WithResource(event.ID).
		WithDetails(map[string]interface{}{"title": event.Title, "course_id": event.CourseID}))

	return event, nil
}

// checkCourse requires the course to exist and, for non admins, to be taught by the principal
func (s *EventService) checkCourse(ctx context.Context, p models.Principal, courseID uuid.UUID) error {
	course, err := s.courses.GetByID(ctx, courseID, repositories.Scope{Unrestricted: true})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.NewValidationError("course_id", "course does not exist")
		}
		return services.WrapInternal("failed to load course", err)
	}
	return s.guard.AttachToCourse(p, authz.ResourceEvent, course)
}

// Get returns an event visible to the principal
func (s *EventService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.CalendarEvent, error) {
	event, err := s.events.GetByID(ctx, id, authz.ScopeFor(p))
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrEventNotFound, "failed to get event")
	}
	return event, nil
}

// List returns the events visible to the principal
func (s *EventService) List(ctx context.Context, p models.Principal, filter repositories.EventFilter) ([]*models.CalendarEvent, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, services.NewValidationError("to", "to must not be before from")
	}
	filter.Page = services.NormalizePage(filter.Page)
	events, err := s.events.List(ctx, authz.ScopeFor(p), filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list events", err)
	}
	return events, nil
}

// load fetches an event and its course for a write. The course is nil for personal events.
func (s *EventService) load(ctx context.Context, id uuid.UUID) (*models.CalendarEvent, *models.Course, error) {
	event, err := s.events.GetByID(ctx, id, repositories.Scope{Unrestricted: true})
	if err != nil {
		return nil, nil, services.NotFoundOr(err, services.ErrEventNotFound, "failed to load event")
	}
	if event.CourseID == nil {
		return event, nil, nil
	}
	course, err := s.courses.GetByID(ctx, *event.CourseID, repositories.Scope{Unrestricted: true})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return event, nil, nil
		}
		return nil, nil, services.WrapInternal("failed to load course", err)
	}
	return event, course, nil
}

// Update merges the input into the event and re-validates the time range
func (s *EventService) Update(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateInput) (*models.CalendarEvent, error) {
	event, course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Event(p, authz.OpUpdate, event, course); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, services.NewValidationError("title", "title cannot be empty")
		}
		event.Title = title
	}
	if in.Description != nil {
		event.Description = *in.Description
	}
	if in.Start != nil {
		event.Start = in.Start.UTC()
	}
	if in.ClearEnd {
		event.End = nil
	} else if in.End != nil {
		end := in.End.UTC()
		event.End = &end
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, services.NewValidationError("type", "type must be one of personal, class, project, exam")
		}
		event.Type = *in.Type
	}
	if !event.ValidRange() {
		return nil, services.ErrInvalidRange
	}
	event.UpdatedAt = time.Now().UTC()

	if err := s.events.Update(ctx, event); err != nil {
		return nil, services.NotFoundOr(err, services.ErrEventNotFound, "failed to update event")
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionEventUpdated, string(authz.ResourceEvent)).
		WithActor(p.ID).
		WithResource(event.ID))

	return event, nil
}

// Delete removes an event
func (s *EventService) Delete(ctx context.Context, p models.Principal, id uuid.UUID) error {
	event, course, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.Event(p, authz.OpDelete, event, course); err != nil {
		return err
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return services.NotFoundOr(err, services.ErrEventNotFound, "failed to delete event")
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionEventDeleted, string(authz.ResourceEvent)).
		WithActor(p.ID).
		WithResource(id).
		WithDetails(map[string]interface{}{"title": event.Title}))

	return nil
}
