package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/users"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// CreateUserRequest represents an account created by an admin
type CreateUserRequest struct {
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	LastName    string  `json:"last_name" validate:"required,max=100"`
	Email       string  `json:"email" validate:"required,email,max=254"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	Role        string  `json:"role" validate:"required,user_role"`
	SchoolLevel *string `json:"school_level,omitempty"`
	Section     *string `json:"section,omitempty"`
	Speciality  *string `json:"speciality,omitempty" validate:"omitempty,max=100"`
}

// CreateProfessorRequest represents a professor account created by an admin
type CreateProfessorRequest struct {
	FirstName  string  `json:"first_name" validate:"required,max=100"`
	LastName   string  `json:"last_name" validate:"required,max=100"`
	Email      string  `json:"email" validate:"required,email,max=254"`
	Password   string  `json:"password" validate:"required,min=8,max=72"`
	Speciality *string `json:"speciality,omitempty" validate:"omitempty,max=100"`
}

// UpdateUserRequest represents changes to an account. An empty string clears
// an optional profile field.
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Role        *string `json:"role,omitempty" validate:"omitempty,user_role"`
	SchoolLevel *string `json:"school_level,omitempty"`
	Section     *string `json:"section,omitempty"`
	Speciality  *string `json:"speciality,omitempty" validate:"omitempty,max=100"`
}

func init() {
	utils.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(CreateUserRequest)
		utils.CheckAcademicProfile(sl, models.UserRole(req.Role), req.SchoolLevel, req.Section, req.Speciality)
	}, CreateUserRequest{})
}

// UserService defines the interface for admin account management
type UserService interface {
	Create(ctx context.Context, p models.Principal, in users.CreateInput) (*models.User, error)
	List(ctx context.Context, p models.Principal, filter repositories.UserFilter) ([]*models.User, error)
	Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, p models.Principal, id uuid.UUID, in users.UpdateInput) (*models.User, error)
	Delete(ctx context.Context, p models.Principal, id uuid.UUID) error
}

// UserHandler handles account management HTTP requests
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request, role *models.UserRole) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	list, err := h.service.List(r.Context(), p, repositories.UserFilter{Role: role, Page: page})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteList(w, list, page.Limit, page.Offset)
}

// HandleList handles GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var role *models.UserRole
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed := models.UserRole(raw)
		if !parsed.Valid() {
			HandleServiceError(w, services.NewValidationError("role", "role must be one of student, professor, admin"), h.logger)
			return
		}
		role = &parsed
	}
	h.list(w, r, role)
}

// HandleListProfessors handles GET /api/profs
func (h *UserHandler) HandleListProfessors(w http.ResponseWriter, r *http.Request) {
	role := models.RoleProfessor
	h.list(w, r, &role)
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request, in users.CreateInput) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	user, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, user)
}

// HandleCreate handles POST /api/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	h.create(w, r, users.CreateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        models.UserRole(req.Role),
		SchoolLevel: req.SchoolLevel,
		Section:     req.Section,
		Speciality:  req.Speciality,
	})
}

// HandleCreateProfessor handles POST /api/profs
func (h *UserHandler) HandleCreateProfessor(w http.ResponseWriter, r *http.Request) {
	var req CreateProfessorRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	h.create(w, r, users.CreateInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		Role:       models.RoleProfessor,
		Speciality: req.Speciality,
	})
}

// HandleGet handles GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleUpdate handles PUT /api/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	in := users.UpdateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		SchoolLevel: req.SchoolLevel,
		Section:     req.Section,
		Speciality:  req.Speciality,
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		in.Role = &role
	}

	user, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleDelete handles DELETE /api/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
