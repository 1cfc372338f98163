package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/authz"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// PrincipalResolver turns a session token into the user owning it
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	resolver   PrincipalResolver
	cookieName string
	logger     *zap.Logger
}

// DefaultCookieName is the session cookie read when no Authorization header is sent
const DefaultCookieName = "auth_token"

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver PrincipalResolver, cookieName string, logger *zap.Logger) *AuthMiddleware {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &AuthMiddleware{
		resolver:   resolver,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireAuth is a middleware that requires a valid session token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := m.extractToken(r)
		if token == "" {
			m.logger.Debug("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		user, err := m.resolver.Resolve(ctx, token)
		if err != nil {
			if services.IsInternalError(err) {
				m.logger.Error("principal resolution failed",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteInternalServerError(w, "")
				return
			}
			m.logger.Warn("token rejected",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, domainMessage(err, "Invalid or expired token"))
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("principal_id", user.ID.String()),
			zap.String("role", string(user.Role)))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, user)))
	})
}

// RequirePermission gates a route on the role table. Ownership is checked later by the service.
func (m *AuthMiddleware) RequirePermission(resource authz.ResourceType, op authz.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			p, ok := GetPrincipalFromContext(ctx)
			if !ok {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !authz.Allowed(p, resource, op) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("principal_id", p.ID.String()),
					zap.String("role", string(p.Role)),
					zap.String("resource", string(resource)),
					zap.String("operation", string(op)))
				_ = utils.WriteError(w, http.StatusForbidden, utils.ErrorTypeForbidden, "Insufficient permissions",
					map[string]interface{}{"resource": resource, "operation": op})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func domainMessage(err error, fallback string) string {
	if msg := services.GetErrorMessage(err); msg != "" {
		return msg
	}
	return fallback
}

// extractToken reads the Authorization header ("Bearer TOKEN") and falls back to the session cookie.
// The header takes precedence when both are present.
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
