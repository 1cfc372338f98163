package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services/resources"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// CreateResourceRequest represents a request to publish a learning resource
type CreateResourceRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	URL         string     `json:"url" validate:"required,url"`
	Type        string     `json:"type" validate:"required,oneof=file link video image"`
	CourseID    *uuid.UUID `json:"course_id,omitempty"`
}

// UpdateResourceRequest represents a request to update a learning resource
type UpdateResourceRequest struct {
	Title        *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	URL          *string    `json:"url,omitempty" validate:"omitempty,url"`
	Type         *string    `json:"type,omitempty" validate:"omitempty,oneof=file link video image"`
	CourseID     *uuid.UUID `json:"course_id,omitempty"`
	DetachCourse bool       `json:"detach_course,omitempty"`
}

// ResourceService defines the interface for learning resource operations
type ResourceService interface {
	Create(ctx context.Context, p models.Principal, in resources.CreateInput) (*models.Resource, error)
	Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Resource, error)
	List(ctx context.Context, p models.Principal, filter repositories.ResourceFilter) ([]*models.Resource, error)
	Update(ctx context.Context, p models.Principal, id uuid.UUID, in resources.UpdateInput) (*models.Resource, error)
	Delete(ctx context.Context, p models.Principal, id uuid.UUID) error
}

// ResourceHandler handles learning resource HTTP requests
type ResourceHandler struct {
	service ResourceService
	logger  *zap.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(service ResourceService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/ressources
func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var filter repositories.ResourceFilter
	var err error
	if filter.Page, err = pageFromQuery(r); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if filter.CourseID, err = optionalUUIDQuery(r, "courseId"); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	list, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteList(w, list, filter.Limit, filter.Offset)
}

// HandleCreate handles POST /api/ressources
func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req CreateResourceRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	resource, err := h.service.Create(r.Context(), p, resources.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Type:        models.ResourceType(req.Type),
		CourseID:    req.CourseID,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, resource)
}

// HandleGet handles GET /api/ressources/{id}
func (h *ResourceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	resource, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, resource)
}

// HandleUpdate handles PUT /api/ressources/{id}
func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateResourceRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	in := resources.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		CourseID:    req.CourseID,
		Detach:      req.DetachCourse,
	}
	if req.Type != nil {
		t := models.ResourceType(*req.Type)
		in.Type = &t
	}

	resource, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, resource)
}

// HandleDelete handles DELETE /api/ressources/{id}
func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"id": id, "deleted": true})
}
