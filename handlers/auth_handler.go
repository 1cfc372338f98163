package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/unistudious/backend/middleware"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/services/users"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// RegisterRequest represents a public student registration
type RegisterRequest struct {
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	LastName    string  `json:"last_name" validate:"required,max=100"`
	Email       string  `json:"email" validate:"required,email,max=254"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	SchoolLevel *string `json:"school_level,omitempty"`
	Section     *string `json:"section,omitempty"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the data of a successful login
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func init() {
	utils.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(RegisterRequest)
		utils.CheckAcademicProfile(sl, models.RoleStudent, req.SchoolLevel, req.Section, nil)
	}, RegisterRequest{})
}

// AuthService defines the interface for session operations
type AuthService interface {
	Register(ctx context.Context, in users.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*users.LoginResult, error)
	Me(ctx context.Context, p models.Principal) (*models.User, error)
}

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler handles registration and sessions
type AuthHandler struct {
	service AuthService
	cookie  CookieConfig
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = middleware.DefaultCookieName
	}
	return &AuthHandler{
		service: service,
		cookie:  cookie,
		logger:  logger,
	}
}

// HandleRegister handles POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.service.Register(r.Context(), users.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		SchoolLevel: req.SchoolLevel,
		Section:     req.Section,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, user)
}

// HandleLogin handles POST /api/auth/login. The token is returned in the body
// and set as an HttpOnly cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login succeeded",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("principal_id", result.User.ID.String()))
	_ = utils.WriteOK(w, LoginResponse{Token: result.Token, ExpiresAt: result.ExpiresAt, User: result.User})
}

// HandleLogout handles POST /api/auth/logout. Tokens are stateless; the cookie is cleared.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	_ = utils.WriteOK(w, map[string]interface{}{"logged_out": true})
}

// HandleMe handles GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), p)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}
