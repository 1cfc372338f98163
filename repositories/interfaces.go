package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
)

// Errors returned by every repository implementation.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager opens database transactions
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is an open database transaction. Rollback after Commit is a no-op.
type Transaction interface {
	Commit() error
	Rollback() error
}

type transactionContextKey struct{}

// ContextWithTransaction returns a context carrying tx. Repositories called
// with that context run their statements inside tx.
func ContextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

// TransactionFromContext retrieves a transaction from the context if available
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(Transaction)
	return tx, ok
}

// Scope restricts reads to the records a viewer may see.
// The zero value sees nothing.
type Scope struct {
	Unrestricted bool
	ViewerID     uuid.UUID
	Role         models.UserRole
}

// Page holds pagination parameters
type Page struct {
	Limit  int
	Offset int
}

// UserFilter narrows user listings
type UserFilter struct {
	Role *models.UserRole
	Page
}

// EventFilter narrows calendar listings
type EventFilter struct {
	From     *time.Time
	To       *time.Time
	CourseID *uuid.UUID
	Page
}

// ResourceFilter narrows resource listings
type ResourceFilter struct {
	CourseID *uuid.UUID
	Page
}

// NotificationFilter narrows notification listings
type NotificationFilter struct {
	UnreadOnly bool
	Page
}

// AuditFilter narrows audit listings
type AuditFilter struct {
	ActorID *uuid.UUID
	Action  *models.AuditAction
	Page
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user; ErrDuplicate when the email is taken
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with optional role filter
	List(ctx context.Context, filter UserFilter) ([]*models.User, error)

	// Roles returns the role of every existing id; unknown ids are absent
	Roles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserRole, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error
}

// CourseRepository handles course data operations
type CourseRepository interface {
	// Create creates a course and its initial enrolments
	Create(ctx context.Context, course *models.Course) error

	// GetByID retrieves a course visible in scope
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*models.Course, error)

	// List retrieves the courses visible in scope
	List(ctx context.Context, scope Scope, page Page) ([]*models.Course, error)

	// Update updates the mutable course fields
	Update(ctx context.Context, course *models.Course) error

	// Delete deletes the course and its enrolments
	Delete(ctx context.Context, id uuid.UUID) error

	// AddStudents enrols students, ignoring existing enrolments. Returns the number added.
	AddStudents(ctx context.Context, courseID uuid.UUID, studentIDs []uuid.UUID) (int64, error)

	// RemoveStudent drops one enrolment. Returns false when it did not exist.
	RemoveStudent(ctx context.Context, courseID, studentID uuid.UUID) (bool, error)

	// StudentIDs returns the students enrolled in a course
	StudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)

	// CountByTeacher returns how many courses a professor teaches
	CountByTeacher(ctx context.Context, teacherID uuid.UUID) (int, error)

	// RemoveStudentEverywhere drops every enrolment of a student
	RemoveStudentEverywhere(ctx context.Context, studentID uuid.UUID) (int64, error)
}

// EventRepository handles calendar event data operations
type EventRepository interface {
	Create(ctx context.Context, event *models.CalendarEvent) error
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*models.CalendarEvent, error)
	List(ctx context.Context, scope Scope, filter EventFilter) ([]*models.CalendarEvent, error)
	Update(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCourse(ctx context.Context, courseID uuid.UUID) (int64, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// ResourceRepository handles learning resource data operations
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*models.Resource, error)
	List(ctx context.Context, scope Scope, filter ResourceFilter) ([]*models.Resource, error)
	Update(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCourse(ctx context.Context, courseID uuid.UUID) (int64, error)
	DeleteByUploader(ctx context.Context, uploaderID uuid.UUID) (int64, error)
}

// NotificationRepository handles notification data operations
type NotificationRepository interface {
	// CreateBatch inserts one row per notification
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*models.Notification, error)
	List(ctx context.Context, scope Scope, filter NotificationFilter) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// DetachCourse clears related_course_id on notifications of a course
	DetachCourse(ctx context.Context, courseID uuid.UUID) (int64, error)

	// DetachUser deletes notifications received by the user and clears sender_id on the ones sent
	DetachUser(ctx context.Context, userID uuid.UUID) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List retrieves audit logs, newest first
	List(ctx context.Context, filter AuditFilter) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users         UserRepository
	Courses       CourseRepository
	Events        EventRepository
	Resources     ResourceRepository
	Notifications NotificationRepository
	AuditLogs     AuditRepository
}
