package handlers

import (
	"context"
	"net/http"

	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// AuditLister lists audit entries
type AuditLister interface {
	List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error)
}

// AuditHandler serves the audit trail to admins
type AuditHandler struct {
	service AuditLister
	logger  *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: service, logger: logger}
}

// HandleList handles GET /api/audit/logs. The route is restricted to admins.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var filter repositories.AuditFilter
	var err error
	if filter.Page, err = pageFromQuery(r); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if filter.ActorID, err = optionalUUIDQuery(r, "actorId"); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if raw := r.URL.Query().Get("action"); raw != "" {
		action := models.AuditAction(raw)
		filter.Action = &action
	}

	logs, err := h.service.List(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteList(w, logs, filter.Limit, filter.Offset)
}
