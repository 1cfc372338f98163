package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"go.uber.org/zap"
)

// courseSelect loads a course with its enrolled students as a text array
const courseSelect = `
	SELECT c.id, c.name, c.description, c.teacher_id, c.progress, c.next_lesson, c.created_at, c.updated_at,
	       ARRAY(SELECT cs.student_id::text FROM course_students cs WHERE cs.course_id = c.id ORDER BY cs.enrolled_at, cs.student_id)
	FROM courses c`

// CourseRepository implements the repositories.CourseRepository interface
type CourseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *DB, logger *zap.Logger) repositories.CourseRepository {
	return &CourseRepository{
		db:     db,
		logger: logger,
	}
}

func scanCourse(row rowScanner) (*models.Course, error) {
	course := &models.Course{}
	var nextLesson sql.NullString
	var students []string
	err := row.Scan(
		&course.ID,
		&course.Name,
		&course.Description,
		&course.TeacherID,
		&course.Progress,
		&nextLesson,
		&course.CreatedAt,
		&course.UpdatedAt,
		pq.Array(&students),
	)
	if err != nil {
		return nil, err
	}
	course.NextLesson = stringPtr(nextLesson)
	if course.StudentIDs, err = parseUUIDs(students); err != nil {
		return nil, err
	}
	return course, nil
}

// Create creates a course and enrols its initial students
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (id, name, description, teacher_id, progress, next_lesson, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		course.ID,
		course.Name,
		course.Description,
		course.TeacherID,
		course.Progress,
		nullString(course.NextLesson),
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	if len(course.StudentIDs) > 0 {
		if _, err := r.AddStudents(ctx, course.ID, course.StudentIDs); err != nil {
			return err
		}
	}

	r.logger.Debug("course created", zap.String("id", course.ID.String()))
	return nil
}

// GetByID retrieves a course visible in scope
func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.Course, error) {
	b := &queryBuilder{}
	b.where("c.id = " + b.arg(id))
	courseScope.apply(b, scope)

	course, err := scanCourse(GetExecutor(ctx, r.db).QueryRowContext(ctx, courseSelect+b.whereClause(), b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return course, nil
}

// List retrieves the courses visible in scope, newest first
func (r *CourseRepository) List(ctx context.Context, scope repositories.Scope, page repositories.Page) ([]*models.Course, error) {
	b := &queryBuilder{}
	courseScope.apply(b, scope)
	query := courseSelect + b.whereClause() + ` ORDER BY c.created_at DESC, c.id` + b.pageClause(page)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}

	return courses, nil
}

// Update updates the mutable course fields. teacher_id is never written.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	query := `
		UPDATE courses
		SET name = $2,
		    description = $3,
		    progress = $4,
		    next_lesson = $5,
		    updated_at = $6
		WHERE id = $1
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		course.ID,
		course.Name,
		course.Description,
		course.Progress,
		nullString(course.NextLesson),
		course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete removes the enrolments then the course
func (r *CourseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)

	if _, err := executor.ExecContext(ctx, `DELETE FROM course_students WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete course enrolments: %w", err)
	}

	result, err := executor.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}

	r.logger.Debug("course deleted", zap.String("id", id.String()))
	return nil
}

// AddStudents enrols students in one statement. Existing enrolments are kept
// as is, so repeating the call never duplicates a student.
func (r *CourseRepository) AddStudents(ctx context.Context, courseID uuid.UUID, studentIDs []uuid.UUID) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO course_students (course_id, student_id)
		SELECT $1, s FROM unnest($2::uuid[]) AS s
		ON CONFLICT (course_id, student_id) DO NOTHING
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, courseID, pq.Array(uuidStrings(studentIDs)))
	if err != nil {
		return 0, fmt.Errorf("failed to add students: %w", err)
	}
	return rowsAffected(result)
}

// RemoveStudent drops one enrolment
func (r *CourseRepository) RemoveStudent(ctx context.Context, courseID, studentID uuid.UUID) (bool, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM course_students WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to remove student: %w", err)
	}
	n, err := rowsAffected(result)
	return n > 0, err
}

// StudentIDs returns the students enrolled in a course
func (r *CourseRepository) StudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT student_id FROM course_students WHERE course_id = $1 ORDER BY enrolled_at, student_id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query course students: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan student id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return ids, nil
}

// CountByTeacher returns how many courses a professor teaches
func (r *CourseRepository) CountByTeacher(ctx context.Context, teacherID uuid.UUID) (int, error) {
	var count int
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM courses WHERE teacher_id = $1`, teacherID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// RemoveStudentEverywhere drops every enrolment of a student
func (r *CourseRepository) RemoveStudentEverywhere(ctx context.Context, studentID uuid.UUID) (int64, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM course_students WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove student enrolments: %w", err)
	}
	return rowsAffected(result)
}
