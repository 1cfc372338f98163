package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/unistudious/backend/middleware"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// decodeAndValidate reads a JSON body into dst and runs the struct validators.
// It writes the 400 envelope itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			_ = utils.WriteBadRequest(w, "Request body is required", nil)
			return false
		}
		_ = utils.WriteBadRequest(w, "Invalid request body", map[string]interface{}{"reason": err.Error()})
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// principal returns the authenticated principal, writing a 401 when absent
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "Authentication required")
	}
	return p, ok
}

// idParam parses a UUID path parameter, writing a 400 when malformed
func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, name))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid "+name+" format", map[string]interface{}{"field": name})
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery parses an optional UUID query parameter
func optionalUUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := utils.ParseUUID(raw)
	if err != nil {
		return nil, services.NewValidationError(name, "invalid "+name+" format")
	}
	return &id, nil
}

// pageFromQuery reads limit and offset, normalized to the listing bounds
func pageFromQuery(r *http.Request) (repositories.Page, error) {
	var page repositories.Page
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return page, services.NewValidationError("limit", "limit must be an integer")
		}
		page.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return page, services.NewValidationError("offset", "offset must be an integer")
		}
		page.Offset = offset
	}
	return services.NormalizePage(page), nil
}
