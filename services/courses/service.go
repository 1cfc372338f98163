// Package courses implements course management: scoped reads, guarded writes,
// enrolment set operations and the delete cascade.
package courses

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/audit"
	"github.com/unistudious/backend/services/authz"
	"go.uber.org/zap"
)

// CreateInput holds the fields of a new course
type CreateInput struct {
	Name        string
	Description string
	TeacherID   *uuid.UUID // required for admins, ignored for professors
	StudentIDs  []uuid.UUID
	Progress    int
	NextLesson  *string
}

// UpdateInput holds the fields to merge into a course. Nil fields are left
// untouched; an empty next lesson clears it.
type UpdateInput struct {
	Name        *string
	Description *string
	Progress    *int
	NextLesson  *string
}

// CourseService handles course operations
type CourseService struct {
	txMgr         repositories.TransactionManager
	courses       repositories.CourseRepository
	users         repositories.UserRepository
	events        repositories.EventRepository
	resources     repositories.ResourceRepository
	notifications repositories.NotificationRepository
	guard         *authz.Guard
	audit         audit.Recorder
	logger        *zap.Logger
}

// NewCourseService creates a new CourseService instance
func NewCourseService(txMgr repositories.TransactionManager, repos *repositories.Repositories, recorder audit.Recorder, logger *zap.Logger) *CourseService {
	return &CourseService{
		txMgr:         txMgr,
		courses:       repos.Courses,
		users:         repos.Users,
		events:        repos.Events,
		resources:     repos.Resources,
		notifications: repos.Notifications,
		guard:         authz.NewGuard(),
		audit:         recorder,
		logger:        logger,
	}
}

// Create creates a course. Professors always teach the courses they create.
func (s *CourseService) Create(ctx context.Context, p models.Principal, in CreateInput) (*models.Course, error) {
	if err := s.guard.CheckRole(p, authz.ResourceCourse, authz.OpCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, services.NewValidationError("name", "name is required")
	}
	if !models.ValidProgress(in.Progress) {
		return nil, services.ErrInvalidProgress
	}

	teacherID := p.ID
	if p.IsAdmin {
		if in.TeacherID == nil {
			return nil, services.NewValidationError("teacher_id", "teacher_id is required")
		}
		teacherID = *in.TeacherID
		if err := services.RequireRole(ctx, s.users, []uuid.UUID{teacherID}, models.RoleProfessor, services.ErrNotAProfessor); err != nil {
			return nil, err
		}
	}

	studentIDs := services.UniqueIDs(in.StudentIDs)
	if err := services.RequireRole(ctx, s.users, studentIDs, models.RoleStudent, services.ErrNotAStudent); err != nil {
		return nil, err
	}

	course := models.NewCourse(strings.TrimSpace(in.Name), in.Description, teacherID)
	course.StudentIDs = studentIDs
	course.Progress = in.Progress
	course.NextLesson = lesson(in.NextLesson)

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		return s.courses.Create(ctx, course)
	})
	if err != nil {
		return nil, services.WrapInternal("failed to create course", err)
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID.String()),
		zap.String("teacher_id", teacherID.String()),
		zap.Int("students", len(studentIDs)))
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionCourseCreated, string(authz.ResourceCourse)).
		WithActor(p.ID).
		WithResource(course.ID).
		WithDetails(map[string]interface{}{"name": course.Name, "teacher_id": teacherID}))

	return course, nil
}

// Get returns a course visible to the principal
func (s *CourseService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, id, authz.ScopeFor(p))
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrCourseNotFound, "failed to get course")
	}
	return course, nil
}

// List returns the courses visible to the principal
func (s *CourseService) List(ctx context.Context, p models.Principal, page repositories.Page) ([]*models.Course, error) {
	courses, err := s.courses.List(ctx, authz.ScopeFor(p), services.NormalizePage(page))
	if err != nil {
		return nil, services.WrapInternal("failed to list courses", err)
	}
	return courses, nil
}

// load fetches a course for a write, bypassing the visibility scope.
// The guard decides afterwards.
func (s *CourseService) load(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, id, repositories.Scope{Unrestricted: true})
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrCourseNotFound, "failed to load course")
	}
	return course, nil
}

// Update merges the input into the course. The teacher never changes.
func (s *CourseService) Update(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateInput) (*models.Course, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Course(p, authz.OpUpdate, course); err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, services.NewValidationError("name", "name cannot be empty")
		}
		course.Name = name
		changes["name"] = name
	}
	if in.Description != nil {
		course.Description = *in.Description
		changes["description"] = *in.Description
	}
	if in.Progress != nil {
		if !models.ValidProgress(*in.Progress) {
			return nil, services.ErrInvalidProgress
		}
		course.Progress = *in.Progress
		changes["progress"] = *in.Progress
	}
	if in.NextLesson != nil {
		course.NextLesson = lesson(in.NextLesson)
		changes["next_lesson"] = course.NextLesson
	}
	course.UpdatedAt = time.Now().UTC()

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, services.NotFoundOr(err, services.ErrCourseNotFound, "failed to update course")
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionCourseUpdated, string(authz.ResourceCourse)).
		WithActor(p.ID).
		WithResource(course.ID).
		WithDetails(map[string]interface{}{"changes": changes}))

	return course, nil
}

// Delete removes a course together with its enrolments, events and resources.
// Notifications about the course lose their course reference.
func (s *CourseService) Delete(ctx context.Context, p models.Principal, id uuid.UUID) error {
	course, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.Course(p, authz.OpDelete, course); err != nil {
		return err
	}

	var eventsDeleted, resourcesDeleted, notificationsDetached int64
	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		var err error
		if eventsDeleted, err = s.events.DeleteByCourse(ctx, id); err != nil {
			return err
		}
		if resourcesDeleted, err = s.resources.DeleteByCourse(ctx, id); err != nil {
			return err
		}
		if notificationsDetached, err = s.notifications.DetachCourse(ctx, id); err != nil {
			return err
		}
		return s.courses.Delete(ctx, id)
	})
	if err != nil {
		return services.NotFoundOr(err, services.ErrCourseNotFound, "failed to delete course")
	}

	s.logger.Info("course deleted",
		zap.String("course_id", id.String()),
		zap.Int64("events_deleted", eventsDeleted),
		zap.Int64("resources_deleted", resourcesDeleted),
		zap.Int64("notifications_detached", notificationsDetached))
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionCourseDeleted, string(authz.ResourceCourse)).
		WithActor(p.ID).
		WithResource(id).
		WithDetails(map[string]interface{}{
			"name":                   course.Name,
			"events_deleted":         eventsDeleted,
			"resources_deleted":      resourcesDeleted,
			"notifications_detached": notificationsDetached,
		}))

	return nil
}

// AssignStudents enrols students in a course. Existing enrolments are kept,
// so assigning twice has no further effect. When notify is set, newly
// enrolled students receive a course notification in the same transaction.
func (s *CourseService) AssignStudents(ctx context.Context, p models.Principal, id uuid.UUID, studentIDs []uuid.UUID, notify bool) (*models.Course, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Course(p, authz.OpUpdate, course); err != nil {
		return nil, err
	}

	ids := services.UniqueIDs(studentIDs)
	if len(ids) == 0 {
		return nil, services.NewValidationError("student_ids", "at least one student id is required")
	}
	if err := services.RequireRole(ctx, s.users, ids, models.RoleStudent, services.ErrNotAStudent); err != nil {
		return nil, err
	}

	newcomers := make([]uuid.UUID, 0, len(ids))
	for _, sid := range ids {
		if !course.HasStudent(sid) {
			newcomers = append(newcomers, sid)
		}
	}

	var added int64
	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		var err error
		if added, err = s.courses.AddStudents(ctx, id, ids); err != nil {
			return err
		}
		if notify && len(newcomers) > 0 {
			courseID := course.ID
			batch := models.FanOut(
				"New course: "+course.Name,
				"You have been enrolled in "+course.Name+".",
				models.NotificationTypeCourse,
				&p.ID, &courseID, newcomers)
			return s.notifications.CreateBatch(ctx, batch)
		}
		return nil
	})
	if err != nil {
		return nil, services.WrapInternal("failed to assign students", err)
	}

	if added > 0 {
		s.audit.Record(ctx, models.NewAuditLog(models.AuditActionStudentsAssigned, string(authz.ResourceCourse)).
			WithActor(p.ID).
			WithResource(id).
			WithDetails(map[string]interface{}{"student_ids": ids, "added": added}))
	}

	return s.load(ctx, id)
}

// RemoveStudent drops one enrolment. Removing a student who is not enrolled is a no-op.
func (s *CourseService) RemoveStudent(ctx context.Context, p models.Principal, id, studentID uuid.UUID) (*models.Course, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Course(p, authz.OpUpdate, course); err != nil {
		return nil, err
	}

	removed, err := s.courses.RemoveStudent(ctx, id, studentID)
	if err != nil {
		return nil, services.WrapInternal("failed to remove student", err)
	}
	if removed {
		s.audit.Record(ctx, models.NewAuditLog(models.AuditActionStudentRemoved, string(authz.ResourceCourse)).
			WithActor(p.ID).
			WithResource(id).
			WithDetails(map[string]interface{}{"student_id": studentID}))
	}

	return s.load(ctx, id)
}

func lesson(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	value := *v
	return &value
}
