package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/calendar"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// CreateEventRequest represents a request to create a calendar event
type CreateEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Start       *time.Time `json:"start" validate:"required"`
	End         *time.Time `json:"end,omitempty"`
	CourseID    *uuid.UUID `json:"course_id,omitempty"`
	Type        string     `json:"type,omitempty" validate:"omitempty,oneof=personal class project exam"`
}

// UpdateEventRequest represents a request to update a calendar event
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	ClearEnd    bool       `json:"clear_end,omitempty"`
	Type        *string    `json:"type,omitempty" validate:"omitempty,oneof=personal class project exam"`
}

func init() {
	utils.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(CreateEventRequest)
		utils.CheckTimeRange(sl, req.Start, req.End)
	}, CreateEventRequest{})
	utils.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(UpdateEventRequest)
		utils.CheckTimeRange(sl, req.Start, req.End)
	}, UpdateEventRequest{})
}

// EventService defines the interface for calendar operations
type EventService interface {
	Create(ctx context.Context, p models.Principal, in calendar.CreateInput) (*models.CalendarEvent, error)
	Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.CalendarEvent, error)
	List(ctx context.Context, p models.Principal, filter repositories.EventFilter) ([]*models.CalendarEvent, error)
	Update(ctx context.Context, p models.Principal, id uuid.UUID, in calendar.UpdateInput) (*models.CalendarEvent, error)
	Delete(ctx context.Context, p models.Principal, id uuid.UUID) error
}

// CalendarHandler handles calendar-related HTTP requests
type CalendarHandler struct {
	service EventService
	logger  *zap.Logger
}

// NewCalendarHandler creates a new CalendarHandler
func NewCalendarHandler(service EventService, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{
		service: service,
		logger:  logger,
	}
}

func timeQuery(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, services.NewValidationError(name, name+" must be an RFC 3339 timestamp")
	}
	return &t, nil
}

// HandleList handles GET /api/calendrier
func (h *CalendarHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var filter repositories.EventFilter
	var err error
	if filter.Page, err = pageFromQuery(r); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if filter.From, err = timeQuery(r, "from"); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if filter.To, err = timeQuery(r, "to"); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if filter.CourseID, err = optionalUUIDQuery(r, "courseId"); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	events, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteList(w, events, filter.Limit, filter.Offset)
}

// HandleCreate handles POST /api/calendrier
func (h *CalendarHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	event, err := h.service.Create(r.Context(), p, calendar.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Start:       *req.Start,
		End:         req.End,
		CourseID:    req.CourseID,
		Type:        models.EventType(req.Type),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, event)
}

// HandleGet handles GET /api/calendrier/{id}
func (h *CalendarHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	event, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, event)
}

// HandleUpdate handles PUT /api/calendrier/{id}
func (h *CalendarHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	in := calendar.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		ClearEnd:    req.ClearEnd,
	}
	if req.Type != nil {
		t := models.EventType(*req.Type)
		in.Type = &t
	}

	event, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, event)
}

// HandleDelete handles DELETE /api/calendrier/{id}
func (h *CalendarHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
