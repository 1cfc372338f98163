package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/unistudious/backend/middleware"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services/courses"
	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

// CreateCourseRequest represents a request to create a course
type CreateCourseRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=5000"`
	TeacherID   *uuid.UUID  `json:"teacher_id,omitempty"`
	StudentIDs  []uuid.UUID `json:"student_ids,omitempty" validate:"omitempty,max=500"`
	Progress    int         `json:"progress" validate:"gte=0,lte=100"`
	NextLesson  *string     `json:"next_lesson,omitempty"`
}

// UpdateCourseRequest represents a request to update a course
type UpdateCourseRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Progress    *int    `json:"progress,omitempty" validate:"omitempty,gte=0,lte=100"`
	NextLesson  *string `json:"next_lesson,omitempty"`
}

// AssignStudentsRequest represents a request to enrol students
type AssignStudentsRequest struct {
	StudentIDs []uuid.UUID `json:"student_ids" validate:"required,min=1,max=500"`
	Notify     bool        `json:"notify"`
}

// CourseService defines the interface for course operations
type CourseService interface {
	Create(ctx context.Context, p models.Principal, in courses.CreateInput) (*models.Course, error)
	Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Course, error)
	List(ctx context.Context, p models.Principal, page repositories.Page) ([]*models.Course, error)
	Update(ctx context.Context, p models.Principal, id uuid.UUID, in courses.UpdateInput) (*models.Course, error)
	Delete(ctx context.Context, p models.Principal, id uuid.UUID) error
	AssignStudents(ctx context.Context, p models.Principal, id uuid.UUID, studentIDs []uuid.UUID, notify bool) (*models.Course, error)
	RemoveStudent(ctx context.Context, p models.Principal, id, studentID uuid.UUID) (*models.Course, error)
}

// CourseHandler handles course-related HTTP requests
type CourseHandler struct {
	service CourseService
	logger  *zap.Logger
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(service CourseService, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/courses
func (h *CourseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	list, err := h.service.List(r.Context(), p, page)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteList(w, list, page.Limit, page.Offset)
}

// HandleCreate handles POST /api/courses
func (h *CourseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req CreateCourseRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	course, err := h.service.Create(r.Context(), p, courses.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		TeacherID:   req.TeacherID,
		StudentIDs:  req.StudentIDs,
		Progress:    req.Progress,
		NextLesson:  req.NextLesson,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("course created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("course_id", course.ID.String()))
	_ = utils.WriteCreated(w, course)
}

// HandleGet handles GET /api/courses/{id}
func (h *CourseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	course, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, course)
}

// HandleUpdate handles PUT /api/courses/{id}
func (h *CourseHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateCourseRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	course, err := h.service.Update(r.Context(), p, id, courses.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Progress:    req.Progress,
		NextLesson:  req.NextLesson,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, course)
}

// HandleDelete handles DELETE /api/courses/{id}
func (h *CourseHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, map[string]interface{}{"id": id, "deleted": true})
}

// HandleAssignStudents handles POST /api/courses/{id}/students
func (h *CourseHandler) HandleAssignStudents(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req AssignStudentsRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	course, err := h.service.AssignStudents(r.Context(), p, id, req.StudentIDs, req.Notify)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, course)
}

// HandleRemoveStudent handles DELETE /api/courses/{id}/students/{studentId}
func (h *CourseHandler) HandleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	studentID, ok := idParam(w, r, "studentId")
	if !ok {
		return
	}

	course, err := h.service.RemoveStudent(r.Context(), p, id, studentID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, course)
}
