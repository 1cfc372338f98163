package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
)

// UniqueIDs drops duplicates and nil ids, preserving order
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RequireRole checks that every id names an existing user with the given role.
// Unknown ids and role mismatches both fail with mismatch, listing the offending ids.
func RequireRole(ctx context.Context, users repositories.UserRepository, ids []uuid.UUID, role models.UserRole, mismatch *DomainError) error {
	if len(ids) == 0 {
		return nil
	}
	roles, err := users.Roles(ctx, ids)
	if err != nil {
		return WrapInternal("failed to load user roles", err)
	}

	var invalid []string
	for _, id := range ids {
		if r, ok := roles[id]; !ok || r != role {
			invalid = append(invalid, id.String())
		}
	}
	if len(invalid) > 0 {
		return mismatch.WithDetail("ids", invalid)
	}
	return nil
}

// NotFoundOr maps repositories.ErrNotFound to notFound and anything else to an internal error
func NotFoundOr(err error, notFound *DomainError, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound
	}
	return WrapInternal(message, err)
}
