// Package identity turns a session token into the principal of a request.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/tokens"
	"go.uber.org/zap"
)

// TokenValidator validates session tokens
type TokenValidator interface {
	Validate(token string) (*tokens.ParsedClaims, error)
}

// Resolver validates tokens and loads the current user behind them.
// The role always comes from storage, never from the token.
type Resolver struct {
	validator TokenValidator
	users     repositories.UserRepository
	cache     *PrincipalCache
	logger    *zap.Logger
}

// NewResolver creates a new Resolver. cache may be nil.
func NewResolver(validator TokenValidator, users repositories.UserRepository, cache *PrincipalCache, logger *zap.Logger) *Resolver {
	return &Resolver{
		validator: validator,
		users:     users,
		cache:     cache,
		logger:    logger,
	}
}

// Resolve returns the user owning the token
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, services.ErrUnauthorized
	}

	claims, err := r.validator.Validate(token)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil, services.ErrTokenExpired
		}
		r.logger.Debug("token rejected", zap.Error(err))
		return nil, services.ErrInvalidToken
	}

	return r.Load(ctx, claims.UserID)
}

// Load returns the user with the given id, through the cache
func (r *Resolver) Load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if r.cache != nil {
		if user := r.cache.Get(id); user != nil {
			return user, nil
		}
	}

	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// account deleted after the token was issued
			return nil, services.ErrInvalidToken
		}
		return nil, services.WrapInternal("failed to load user", err)
	}

	if r.cache != nil {
		r.cache.Set(user)
	}
	return user, nil
}

// Forget drops a user from the cache
func (r *Resolver) Forget(id uuid.UUID) {
	if r.cache != nil {
		r.cache.Invalidate(id)
	}
}
