package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey contextKey = "principal"

	// UserKey is the context key for the authenticated user record
	UserKey contextKey = "user"

	requestStateKey contextKey = "request_state"
)

// requestState is shared between the request logger and the handlers below it
type requestState struct {
	principalID uuid.UUID
}

// GetRequestIDFromContext retrieves the request ID from context.
// The id set by chi's RequestID middleware is used when none was stored explicitly.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithPrincipal stores the authenticated user and its principal
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	if st, ok := ctx.Value(requestStateKey).(*requestState); ok {
		st.principalID = user.ID
	}
	ctx = context.WithValue(ctx, UserKey, user)
	return context.WithValue(ctx, PrincipalKey, user.Principal())
}

// GetPrincipalFromContext retrieves the authenticated principal
func GetPrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(models.Principal)
	return p, ok
}

// GetUserFromContext retrieves the authenticated user record
func GetUserFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}
