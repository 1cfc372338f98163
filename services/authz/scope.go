package authz

import (
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
)

// ScopeFor returns the visibility scope of a principal.
// Admins are unrestricted; everyone else is filtered by ownership or enrolment.
func ScopeFor(p models.Principal) repositories.Scope {
	return repositories.Scope{
		Unrestricted: p.IsAdmin,
		ViewerID:     p.ID,
		Role:         p.Role,
	}
}

// CanReadCourse is the in-memory form of the course visibility predicate
func CanReadCourse(p models.Principal, c *models.Course) bool {
	return p.IsAdmin || c.IsTaughtBy(p.ID) || c.HasStudent(p.ID)
}
