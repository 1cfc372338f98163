// Package resources implements learning resources shared by professors.
package resources

import (
	"context"
	"errors"
	"net/url"
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

// CreateInput holds the fields of a new resource
type CreateInput struct {
	Title       string
	Description string
	URL         string
	Type        models.ResourceType
	CourseID    *uuid.UUID
}

// UpdateInput holds the fields to merge into a resource. Nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	URL         *string
	Type        *models.ResourceType
	CourseID    *uuid.UUID
	Detach      bool // clears the course
}

// ResourceService handles resource operations
type ResourceService struct {
	resources repositories.ResourceRepository
	courses   repositories.CourseRepository
	guard     *authz.Guard
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewResourceService creates a new ResourceService instance
func NewResourceService(resources repositories.ResourceRepository, courses repositories.CourseRepository, recorder audit.Recorder, logger *zap.Logger) *ResourceService {
	return &ResourceService{
		resources: resources,
		courses:   courses,
		guard:     authz.NewGuard(),
		audit:     recorder,
		logger:    logger,
	}
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Create creates a resource uploaded by the principal
func (s *ResourceService) Create(ctx context.Context, p models.Principal, in CreateInput) (*models.Resource, error) {
	if err := s.guard.CheckRole(p, authz.ResourceResource, authz.OpCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, services.NewValidationError("title", "title is required")
	}
	if !validURL(in.URL) {
		return nil, services.NewValidationError("url", "url must be an absolute http(s) URL")
	}
	if !in.Type.Valid() {
		return nil, services.NewValidationError("type", "type must be one of file, link, video, image")
	}

	resource := models.NewResource(strings.TrimSpace(in.Title), in.URL, in.Type, p.ID)
	resource.Description = in.Description
	if in.CourseID != nil {
		if err := s.checkCourse(ctx, p, *in.CourseID); err != nil {
			return nil, err
		}
		courseID := *in.CourseID
		resource.CourseID = &courseID
	}

	if err := s.resources.Create(ctx, resource); err != nil {
		return nil, services.WrapInternal("failed to create resource", err)
	}

	s.logger.Debug("resource created", zap.String("resource_id", resource.ID.String()))
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionResourceCreated, string(authz.ResourceResource)).
		WithActor(p.ID).
		WithResource(resource.ID).
		WithDetails(map[string]interface{}{"title": resource.Title, "course_id": resource.CourseID}))

	return resource, nil
}

func (s *ResourceService) checkCourse(ctx context.Context, p models.Principal, courseID uuid.UUID) error {
	course, err := s.courses.GetByID(ctx, courseID, repositories.Scope{Unrestricted: true})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.NewValidationError("course_id", "course does not exist")
		}
		return services.WrapInternal("failed to load course", err)
	}
	return s.guard.AttachToCourse(p, authz.ResourceResource, course)
}

// Get returns a resource visible to the principal
func (s *ResourceService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Resource, error) {
	resource, err := s.resources.GetByID(ctx, id, authz.ScopeFor(p))
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrResourceNotFound, "failed to get resource")
	}
	return resource, nil
}

// List returns the resources visible to the principal
func (s *ResourceService) List(ctx context.Context, p models.Principal, filter repositories.ResourceFilter) ([]*models.Resource, error) {
	filter.Page = services.NormalizePage(filter.Page)
	resources, err := s.resources.List(ctx, authz.ScopeFor(p), filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list resources", err)
	}
	return resources, nil
}

func (s *ResourceService) load(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	resource, err := s.resources.GetByID(ctx, id, repositories.Scope{Unrestricted: true})
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrResourceNotFound, "failed to load resource")
	}
	return resource, nil
}

// Update merges the input into the resource
func (s *ResourceService) Update(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateInput) (*models.Resource, error) {
	resource, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Resource(p, authz.OpUpdate, resource); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, services.NewValidationError("title", "title cannot be empty")
		}
		resource.Title = title
	}
	if in.Description != nil {
		resource.Description = *in.Description
	}
	if in.URL != nil {
		if !validURL(*in.URL) {
			return nil, services.NewValidationError("url", "url must be an absolute http(s) URL")
		}
		resource.URL = *in.URL
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, services.NewValidationError("type", "type must be one of file, link, video, image")
		}
		resource.Type = *in.Type
	}
	if in.Detach {
		resource.CourseID = nil
	} else if in.CourseID != nil {
		if err := s.checkCourse(ctx, p, *in.CourseID); err != nil {
			return nil, err
		}
		courseID := *in.CourseID
		resource.CourseID = &courseID
	}
	resource.UpdatedAt = time.Now().UTC()

	if err := s.resources.Update(ctx, resource); err != nil {
		return nil, services.NotFoundOr(err, services.ErrResourceNotFound, "failed to update resource")
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionResourceUpdated, string(authz.ResourceResource)).
		WithActor(p.ID).
		WithResource(resource.ID))

	return resource, nil
}

// Delete removes a resource
func (s *ResourceService) Delete(ctx context.Context, p models.Principal, id uuid.UUID) error {
	resource, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.Resource(p, authz.OpDelete, resource); err != nil {
		return err
	}

	if err := s.resources.Delete(ctx, id); err != nil {
		return services.NotFoundOr(err, services.ErrResourceNotFound, "failed to delete resource")
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionResourceDeleted, string(authz.ResourceResource)).
		WithActor(p.ID).
		WithResource(id).
		WithDetails(map[string]interface{}{"title": resource.Title}))

	return nil
}
