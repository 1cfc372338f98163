package authz

import (
	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/services"
)

// Guard runs the role and ownership checks that precede a write.
// It never touches storage: callers load the record first and write only
// when the check returns nil.
type Guard struct{}

// NewGuard creates a new Guard
func NewGuard() *Guard {
	return &Guard{}
}

// CheckRole fails with a forbidden error when the role check fails
func (g *Guard) CheckRole(p models.Principal, resource ResourceType, op Operation) error {
	if !Allowed(p, resource, op) {
		return services.Forbidden(string(resource), string(op))
	}
	return nil
}

// CheckOwner requires the principal to own the record, or to be an admin
func (g *Guard) CheckOwner(p models.Principal, resource ResourceType, op Operation, ownerID uuid.UUID) error {
	if err := g.CheckRole(p, resource, op); err != nil {
		return err
	}
	if p.IsAdmin || p.ID == ownerID {
		return nil
	}
	return services.Forbidden(string(resource), string(op)).WithDetail("reason", "not owner")
}

// Course allows update/delete to the course teacher or an admin
func (g *Guard) Course(p models.Principal, op Operation, c *models.Course) error {
	return g.CheckOwner(p, ResourceCourse, op, c.TeacherID)
}

// Event allows update/delete to the creator whatever their role, to an admin,
// and to the teacher of the course the event belongs to.
func (g *Guard) Event(p models.Principal, op Operation, e *models.CalendarEvent, course *models.Course) error {
	if err := g.CheckRole(p, ResourceEvent, op); err != nil {
		return err
	}
	if p.IsAdmin || p.ID == e.OwnerID {
		return nil
	}
	if course != nil && e.CourseID != nil && *e.CourseID == course.ID && course.IsTaughtBy(p.ID) {
		return nil
	}
	return services.Forbidden(string(ResourceEvent), string(op)).WithDetail("reason", "not owner")
}

// Resource allows update/delete to the uploader or an admin
func (g *Guard) Resource(p models.Principal, op Operation, r *models.Resource) error {
	return g.CheckOwner(p, ResourceResource, op, r.UploadedBy)
}

// NotificationDelete allows the sender, the recipient or an admin
func (g *Guard) NotificationDelete(p models.Principal, n *models.Notification) error {
	if err := g.CheckRole(p, ResourceNotification, OpDelete); err != nil {
		return err
	}
	if p.IsAdmin || p.ID == n.RecipientID || (n.SenderID != nil && *n.SenderID == p.ID) {
		return nil
	}
	return services.Forbidden(string(ResourceNotification), string(OpDelete))
}

// NotificationMarkRead allows the recipient only
func (g *Guard) NotificationMarkRead(p models.Principal, n *models.Notification) error {
	if p.ID != n.RecipientID {
		return services.Forbidden(string(ResourceNotification), string(OpUpdate)).WithDetail("reason", "only the recipient can mark it read")
	}
	return nil
}

// AttachToCourse checks a principal may attach content to a course:
// admins anywhere, professors only to courses they teach.
func (g *Guard) AttachToCourse(p models.Principal, resource ResourceType, c *models.Course) error {
	if p.IsAdmin || c.IsTaughtBy(p.ID) {
		return nil
	}
	return services.Forbidden(string(resource), string(OpCreate)).WithDetail("reason", "not the course teacher")
}
