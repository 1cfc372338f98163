package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/notifications"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// SendNotificationRequest represents a request to notify users
type SendNotificationRequest struct {
	Title        string      `json:"title" validate:"required,max=200"`
	Message      string      `json:"message" validate:"required,max=5000"`
	Type         string      `json:"type,omitempty" validate:"omitempty,oneof=info course event resource system"`
	RecipientIDs []uuid.UUID `json:"recipient_ids,omitempty" validate:"omitempty,max=1000"`
	CourseID     *uuid.UUID  `json:"course_id,omitempty"`
}

// NotificationService defines the interface for notification operations
type NotificationService interface {
	Send(ctx context.Context, p models.Principal, in notifications.SendInput) ([]*models.Notification, error)
	List(ctx context.Context, p models.Principal, filter repositories.NotificationFilter) ([]*models.Notification, error)
	Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Notification, error)
	MarkRead(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, p models.Principal) (int64, error)
	Delete(ctx context.Context, p models.Principal, id uuid.UUID) error
}

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	service NotificationService
	logger  *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/notifications
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var filter repositories.NotificationFilter
	var err error
	if filter.Page, err = pageFromQuery(r); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if raw := r.URL.Query().Get("unread"); raw != "" {
		if filter.UnreadOnly, err = strconv.ParseBool(raw); err != nil {
			HandleServiceError(w, services.NewValidationError("unread", "unread must be true or false"), h.logger)
			return
		}
	}

	list, err := h.service.List(r.Context(), p, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteList(w, list, filter.Limit, filter.Offset)
}

// HandleSend handles POST /api/notifications
func (h *NotificationHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req SendNotificationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	batch, err := h.service.Send(r.Context(), p, notifications.SendInput{
		Title:        req.Title,
		Message:      req.Message,
		Type:         models.NotificationType(req.Type),
		RecipientIDs: req.RecipientIDs,
		CourseID:     req.CourseID,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, map[string]interface{}{"items": batch, "count": len(batch)})
}

// HandleGet handles GET /api/notifications/{id}
func (h *NotificationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	n, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, n)
}

// HandleMarkRead handles PATCH /api/notifications/{id}/read
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	n, err := h.service.MarkRead(r.Context(), p, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, n)
}

// HandleMarkAllRead handles PATCH /api/notifications/read-all
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	count, err := h.service.MarkAllRead(r.Context(), p)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"updated": count})
}

// HandleDelete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
