package models

import (
	"time"

	"github.com/google/uuid"
)

// Course progress bounds, inclusive.
const (
	MinProgress = 0
	MaxProgress = 100
)

// Course is taught by one professor to a set of students
type Course struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description" db:"description"`
	TeacherID   uuid.UUID   `json:"teacher_id" db:"teacher_id"`
	StudentIDs  []uuid.UUID `json:"student_ids" db:"-"` // loaded from course_students
	Progress    int         `json:"progress" db:"progress"`
	NextLesson  *string     `json:"next_lesson,omitempty" db:"next_lesson"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Course model
func (Course) TableName() string {
	return "courses"
}

// NewCourse creates a new Course instance
func NewCourse(name, description string, teacherID uuid.UUID) *Course {
	now := time.Now().UTC()
	return &Course{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		TeacherID:   teacherID,
		StudentIDs:  []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ValidProgress reports whether p is within [MinProgress, MaxProgress]
func ValidProgress(p int) bool {
	return p >= MinProgress && p <= MaxProgress
}

// HasStudent reports whether id is enrolled in the course
func (c *Course) HasStudent(id uuid.UUID) bool {
	for _, s := range c.StudentIDs {
		if s == id {
			return true
		}
	}
	return false
}

// IsTaughtBy reports whether id is the course teacher
func (c *Course) IsTaughtBy(id uuid.UUID) bool {
	return c.TeacherID == id
}
