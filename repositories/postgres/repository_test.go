package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return WrapDB(sqlDB, zap.NewNop()), mock
}

var courseColumns = []string{"id", "name", "description", "teacher_id", "progress", "next_lesson", "created_at", "updated_at", "students"}

func TestCourseRepository_ListScopes(t *testing.T) {
	viewer := uuid.New()
	tests := []struct {
		name      string
		scope     repositories.Scope
		predicate string
		args      int
	}{
		{
			name:      "admin sees everything",
			scope:     repositories.Scope{Unrestricted: true, ViewerID: viewer, Role: models.RoleAdmin},
			predicate: "FROM courses c ORDER BY",
			args:      0,
		},
		{
			name:      "professor sees taught courses",
			scope:     repositories.Scope{ViewerID: viewer, Role: models.RoleProfessor},
			predicate: "WHERE c.teacher_id = $1",
			args:      1,
		},
		{
			name:      "student sees enrolled courses",
			scope:     repositories.Scope{ViewerID: viewer, Role: models.RoleStudent},
			predicate: "WHERE EXISTS (SELECT 1 FROM course_students cs WHERE cs.course_id = c.id AND cs.student_id = $1)",
			args:      1,
		},
		{
			name:      "empty scope sees nothing",
			scope:     repositories.Scope{},
			predicate: "WHERE FALSE",
			args:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewCourseRepository(db, zap.NewNop())

			expect := mock.ExpectQuery(regexp.QuoteMeta(tt.predicate))
			if tt.args == 1 {
				expect.WithArgs(viewer)
			}
			expect.WillReturnRows(sqlmock.NewRows(courseColumns))

			courses, err := repo.List(context.Background(), tt.scope, repositories.Page{})
			require.NoError(t, err)
			assert.Empty(t, courses)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db, zap.NewNop())

	courseID, teacherID := uuid.New(), uuid.New()
	s1, s2 := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1 AND c.teacher_id = $2")).
		WithArgs(courseID, teacherID).
		WillReturnRows(sqlmock.NewRows(courseColumns).AddRow(
			courseID.String(), "Algebra", "Vectors", teacherID.String(), 40, "Chapter 3", now, now,
			"{"+s1.String()+","+s2.String()+"}",
		))

	course, err := repo.GetByID(context.Background(), courseID, repositories.Scope{ViewerID: teacherID, Role: models.RoleProfessor})
	require.NoError(t, err)
	assert.Equal(t, courseID, course.ID)
	assert.Equal(t, teacherID, course.TeacherID)
	assert.Equal(t, 40, course.Progress)
	require.NotNil(t, course.NextLesson)
	assert.Equal(t, "Chapter 3", *course.NextLesson)
	assert.Equal(t, []uuid.UUID{s1, s2}, course.StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_GetByIDOutsideScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db, zap.NewNop())

	mock.ExpectQuery("FROM courses c").WillReturnRows(sqlmock.NewRows(courseColumns))

	_, err := repo.GetByID(context.Background(), uuid.New(), repositories.Scope{ViewerID: uuid.New(), Role: models.RoleStudent})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCourseRepository_AddStudentsIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db, zap.NewNop())

	courseID, student := uuid.New(), uuid.New()
	insert := regexp.QuoteMeta("ON CONFLICT (course_id, student_id) DO NOTHING")

	mock.ExpectExec(insert).
		WithArgs(courseID, pq.Array([]string{student.String()})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs(courseID, pq.Array([]string{student.String()})).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddStudents(context.Background(), courseID, []uuid.UUID{student})
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	added, err = repo.AddStudents(context.Background(), courseID, []uuid.UUID{student})
	require.NoError(t, err)
	assert.Equal(t, int64(0), added, "second assignment adds nothing")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_AddStudentsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db, zap.NewNop())

	added, err := repo.AddStudents(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_RemoveStudent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db, zap.NewNop())
	courseID, student := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_students WHERE course_id = $1 AND student_id = $2")).
		WithArgs(courseID, student).
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.RemoveStudent(context.Background(), courseID, student)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db, zap.NewNop())
	courseID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_students WHERE course_id = $1")).
		WithArgs(courseID).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs(courseID).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), courseID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_UpdateNeverWritesTeacher(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db, zap.NewNop())
	course := models.NewCourse("Algebra", "", uuid.New())

	mock.ExpectExec(`UPDATE courses\s+SET name = \$2,\s+description = \$3,\s+progress = \$4,\s+next_lesson = \$5,\s+updated_at = \$6\s+WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), course))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	user := models.NewUser("Ada", "Lovelace", "ada@school.test", models.RoleStudent)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), user)
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ada@school.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "role", "school_level", "section", "speciality", "created_at", "updated_at"}).
			AddRow(id.String(), "Ada", "Lovelace", "ada@school.test", "hash", "student", "2nd year", "Science", nil, now, now))

	user, err := repo.GetByEmail(context.Background(), "  ADA@school.test")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	require.NotNil(t, user.Section)
	assert.Equal(t, "Science", *user.Section)
	assert.Nil(t, user.Speciality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUserRepository_Roles(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, role FROM users WHERE id = ANY($1::uuid[])")).
		WithArgs(pq.Array([]string{a.String(), b.String()})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(a.String(), "student"))

	roles, err := repo.Roles(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]models.UserRole{a: models.RoleStudent}, roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListByRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	role := models.RoleProfessor

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3")).
		WithArgs(role, 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	users, err := repo.List(context.Background(), repositories.UserFilter{Role: &role, Page: repositories.Page{Limit: 10, Offset: 20}})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_RoundTripTimes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db, zap.NewNop())

	id, owner := uuid.New(), uuid.New()
	start := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.id = $1 AND (e.owner_id = $2 OR e.course_id IN (SELECT course_id FROM course_students WHERE student_id = $2))")).
		WithArgs(id, owner).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "start_at", "end_at", "owner_id", "course_id", "type", "created_at", "updated_at"}).
			AddRow(id.String(), "Lab", "", start, end, owner.String(), nil, "class", now, now))

	event, err := repo.GetByID(context.Background(), id, repositories.Scope{ViewerID: owner, Role: models.RoleStudent})
	require.NoError(t, err)
	assert.True(t, start.Equal(event.Start))
	require.NotNil(t, event.End)
	assert.True(t, end.Equal(*event.End))
	assert.Nil(t, event.CourseID)
	assert.Equal(t, models.EventTypeClass, event.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ListWindow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db, zap.NewNop())
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(regexp.QuoteMeta("FROM calendar_events e WHERE COALESCE(e.end_at, e.start_at) >= $1 AND e.start_at < $2 ORDER BY e.start_at")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.List(context.Background(), repositories.Scope{Unrestricted: true}, repositories.EventFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_StudentScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewResourceRepository(db, zap.NewNop())
	student, course := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.course_id IN (SELECT course_id FROM course_students WHERE student_id = $1) AND r.course_id = $2")).
		WithArgs(student, course).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.List(context.Background(), repositories.Scope{ViewerID: student, Role: models.RoleStudent}, repositories.ResourceFilter{CourseID: &course})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ProfessorScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db, zap.NewNop())
	prof, course := uuid.New(), uuid.New()
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	start := from.Add(48 * time.Hour)
	now := time.Now().UTC()

	// owned events plus events of courses the professor teaches
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (e.owner_id = $1 OR e.course_id IN (SELECT id FROM courses WHERE teacher_id = $1)) AND COALESCE(e.end_at, e.start_at) >= $2")).
		WithArgs(prof, from).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "start_at", "end_at", "owner_id", "course_id", "type", "created_at", "updated_at"}).
			AddRow(uuid.New().String(), "Exam", "", start, nil, uuid.New().String(), course.String(), "exam", now, now))

	events, err := repo.List(context.Background(), repositories.Scope{ViewerID: prof, Role: models.RoleProfessor}, repositories.EventFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].CourseID)
	assert.Equal(t, course, *events[0].CourseID)
	assert.Nil(t, events[0].End)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_ProfessorScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewResourceRepository(db, zap.NewNop())
	prof := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE (r.uploaded_by = $1 OR r.course_id IN (SELECT id FROM courses WHERE teacher_id = $1)) ORDER BY r.created_at DESC, r.id")).
		WithArgs(prof).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "url", "type", "course_id", "uploaded_by", "created_at", "updated_at"}).
			AddRow(uuid.New().String(), "Slides", "", "https://example.com/s.pdf", "file", nil, prof.String(), now, now))

	resources, err := repo.List(context.Background(), repositories.Scope{ViewerID: prof, Role: models.RoleProfessor}, repositories.ResourceFilter{})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, prof, resources[0].UploadedBy)
	assert.Nil(t, resources[0].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_CreateBatchStopsOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db, zap.NewNop())
	batch := models.FanOut("t", "m", models.NotificationTypeInfo, nil, nil, []uuid.UUID{uuid.New(), uuid.New(), uuid.New()})

	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnError(errors.New("fk violation"))

	err := repo.CreateBatch(context.Background(), batch)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_RecipientScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db, zap.NewNop())
	me := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE n.recipient_id = $1 AND n.is_read = false")).
		WithArgs(me).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.List(context.Background(), repositories.Scope{ViewerID: me, Role: models.RoleProfessor}, repositories.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	log := models.NewAuditLog(models.AuditActionCourseDeleted, "course").WithActor(uuid.New())

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_HealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	db := WrapDB(sqlDB, zap.NewNop())

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
