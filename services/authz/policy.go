// Package authz holds the role policy table, the visibility scopes handed to
// repositories, and the ownership checks run before every mutation.
package authz

import (
	"github.com/unistudious/backend/models"
)

// ResourceType names a guarded entity
type ResourceType string

const (
	ResourceCourse       ResourceType = "course"
	ResourceEvent        ResourceType = "event"
	ResourceResource     ResourceType = "resource"
	ResourceNotification ResourceType = "notification"
	ResourceUser         ResourceType = "user"
	ResourceAudit        ResourceType = "audit"
)

// Operation is a CRUD verb
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Permission is one cell of the policy table
type Permission struct {
	Resource  ResourceType
	Operation Operation
}

var anyRole = []models.UserRole{models.RoleStudent, models.RoleProfessor, models.RoleAdmin}
var staff = []models.UserRole{models.RoleProfessor, models.RoleAdmin}
var adminOnly = []models.UserRole{models.RoleAdmin}

// roleMatrix lists, per permission, the roles that pass the role check.
// Ownership is checked separately by the Guard. Never mutated after init.
var roleMatrix = map[Permission][]models.UserRole{
	{ResourceCourse, OpCreate}: staff,
	{ResourceCourse, OpRead}:   anyRole,
	{ResourceCourse, OpUpdate}: staff,
	{ResourceCourse, OpDelete}: staff,

	// Event creators keep update/delete rights whatever their role.
	{ResourceEvent, OpCreate}: staff,
	{ResourceEvent, OpRead}:   anyRole,
	{ResourceEvent, OpUpdate}: anyRole,
	{ResourceEvent, OpDelete}: anyRole,

	{ResourceResource, OpCreate}: staff,
	{ResourceResource, OpRead}:   anyRole,
	{ResourceResource, OpUpdate}: staff,
	{ResourceResource, OpDelete}: staff,

	// Update is the recipient marking a notification read.
	{ResourceNotification, OpCreate}: staff,
	{ResourceNotification, OpRead}:   anyRole,
	{ResourceNotification, OpUpdate}: anyRole,
	{ResourceNotification, OpDelete}: anyRole,

	{ResourceUser, OpCreate}: adminOnly,
	{ResourceUser, OpRead}:   adminOnly,
	{ResourceUser, OpUpdate}: adminOnly,
	{ResourceUser, OpDelete}: adminOnly,

	{ResourceAudit, OpRead}: adminOnly,
}

// PermittedRoles returns a copy of the roles allowed to perform op on resource
func PermittedRoles(resource ResourceType, op Operation) []models.UserRole {
	roles := roleMatrix[Permission{resource, op}]
	out := make([]models.UserRole, len(roles))
	copy(out, roles)
	return out
}

// Allowed reports whether the principal passes the role check.
// Admins always pass.
func Allowed(p models.Principal, resource ResourceType, op Operation) bool {
	if p.IsAdmin {
		return true
	}
	for _, r := range roleMatrix[Permission{resource, op}] {
		if r == p.Role {
			return true
		}
	}
	return false
}
