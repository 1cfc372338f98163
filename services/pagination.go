package services

import "github.com/unistudious/backend/repositories"

// Listing limits
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// NormalizePage applies the default limit, caps it, and floors the offset at zero
func NormalizePage(p repositories.Page) repositories.Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
