package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// User tests
func TestNewUser(t *testing.T) {
	user := NewUser("Ada", "Lovelace", "  Ada@School.TEST ", RoleStudent)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ada@school.test", user.Email)
	assert.Equal(t, RoleStudent, user.Role)
	assert.Equal(t, "Ada Lovelace", user.FullName())
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	assert.Equal(t, "users", user.TableName())
}

func TestUser_Roles(t *testing.T) {
	tests := []struct {
		role      UserRole
		admin     bool
		professor bool
		student   bool
	}{
		{RoleAdmin, true, false, false},
		{RoleProfessor, false, true, false},
		{RoleStudent, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			u := &User{ID: uuid.New(), Role: tt.role}
			assert.Equal(t, tt.admin, u.IsAdmin())
			assert.Equal(t, tt.professor, u.IsProfessor())
			assert.Equal(t, tt.student, u.IsStudent())
			assert.True(t, tt.role.Valid())

			p := u.Principal()
			assert.Equal(t, u.ID, p.ID)
			assert.Equal(t, tt.role, p.Role)
			assert.Equal(t, tt.admin, p.IsAdmin)
		})
	}

	assert.False(t, UserRole("janitor").Valid())
}

func TestUser_Password(t *testing.T) {
	u := NewUser("A", "B", "a@b.test", RoleProfessor)
	assert.False(t, u.CheckPassword("anything"), "no hash yet")

	require.NoError(t, u.SetPassword("correct horse"))
	assert.NotEqual(t, "correct horse", u.PasswordHash)
	assert.True(t, u.CheckPassword("correct horse"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	u := NewUser("A", "B", "a@b.test", RoleStudent)
	require.NoError(t, u.SetPassword("secret-pass"))

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), u.PasswordHash)
}

func TestUser_ValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr string
	}{
		{
			name: "entry level student without section",
			user: User{Role: RoleStudent, SchoolLevel: strPtr(EntrySchoolLevel)},
		},
		{
			name:    "entry level student with section",
			user:    User{Role: RoleStudent, SchoolLevel: strPtr(EntrySchoolLevel), Section: strPtr("Science")},
			wantErr: "section",
		},
		{
			name: "second year student with section",
			user: User{Role: RoleStudent, SchoolLevel: strPtr("2nd year"), Section: strPtr("Science")},
		},
		{
			name:    "second year student without section",
			user:    User{Role: RoleStudent, SchoolLevel: strPtr("2nd year")},
			wantErr: "section",
		},
		{
			name:    "unknown section",
			user:    User{Role: RoleStudent, SchoolLevel: strPtr("3rd year"), Section: strPtr("Astrology")},
			wantErr: "section",
		},
		{
			name:    "student without school level",
			user:    User{Role: RoleStudent},
			wantErr: "school_level",
		},
		{
			name:    "student with speciality",
			user:    User{Role: RoleStudent, SchoolLevel: strPtr(EntrySchoolLevel), Speciality: strPtr("Physics")},
			wantErr: "speciality",
		},
		{
			name: "professor with speciality",
			user: User{Role: RoleProfessor, Speciality: strPtr("Physics")},
		},
		{
			name:    "professor with school level",
			user:    User{Role: RoleProfessor, SchoolLevel: strPtr("2nd year")},
			wantErr: "school_level",
		},
		{
			name:    "admin with speciality",
			user:    User{Role: RoleAdmin, Speciality: strPtr("Physics")},
			wantErr: "speciality",
		},
		{
			name: "plain admin",
			user: User{Role: RoleAdmin},
		},
		{
			name:    "unknown role",
			user:    User{Role: "janitor"},
			wantErr: "role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.ValidateProfile()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var pe *ProfileError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantErr, pe.Field)
		})
	}
}

// Course tests
func TestNewCourse(t *testing.T) {
	teacher := uuid.New()
	c := NewCourse("Algebra", "Linear algebra basics", teacher)

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.True(t, c.IsTaughtBy(teacher))
	assert.False(t, c.IsTaughtBy(uuid.New()))
	assert.Empty(t, c.StudentIDs)
	assert.Equal(t, "courses", c.TableName())

	student := uuid.New()
	c.StudentIDs = append(c.StudentIDs, student)
	assert.True(t, c.HasStudent(student))
	assert.False(t, c.HasStudent(uuid.New()))
}

func TestValidProgress(t *testing.T) {
	assert.False(t, ValidProgress(-1))
	assert.True(t, ValidProgress(0))
	assert.True(t, ValidProgress(55))
	assert.True(t, ValidProgress(100))
	assert.False(t, ValidProgress(101))
}

// CalendarEvent tests
func TestCalendarEvent_ValidRange(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := NewCalendarEvent("Exam", start, uuid.New(), EventTypeExam)
	assert.True(t, e.ValidRange(), "open ended")

	end := start.Add(2 * time.Hour)
	e.End = &end
	assert.True(t, e.ValidRange())

	same := start
	e.End = &same
	assert.True(t, e.ValidRange(), "zero length")

	before := start.Add(-time.Minute)
	e.End = &before
	assert.False(t, e.ValidRange())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, EventTypeClass.Valid())
	assert.False(t, EventType("party").Valid())
	assert.True(t, ResourceTypeVideo.Valid())
	assert.False(t, ResourceType("pdf").Valid())
	assert.True(t, NotificationTypeCourse.Valid())
	assert.False(t, NotificationType("spam").Valid())
}

// Notification tests
func TestFanOut(t *testing.T) {
	sender := uuid.New()
	course := uuid.New()
	a, b := uuid.New(), uuid.New()

	out := FanOut("Exam moved", "Now on Friday", NotificationTypeCourse, &sender, &course, []uuid.UUID{a, b, a})

	require.Len(t, out, 2, "duplicates collapse to one row per recipient")
	assert.Equal(t, a, out[0].RecipientID)
	assert.Equal(t, b, out[1].RecipientID)
	assert.NotEqual(t, out[0].ID, out[1].ID)
	for _, n := range out {
		assert.False(t, n.IsRead)
		assert.Equal(t, &sender, n.SenderID)
		assert.Equal(t, &course, n.RelatedCourseID)
	}
}

// AuditLog tests
func TestNewAuditLog(t *testing.T) {
	actor := uuid.New()
	resource := uuid.New()

	log := NewAuditLog(AuditActionCourseCreated, "course").
		WithActor(actor).
		WithResource(resource).
		WithDetails(map[string]string{"name": "Algebra"}).
		WithRequest("req-1", "10.0.0.1", "curl/8")

	assert.NotEqual(t, uuid.Nil, log.ID)
	assert.Equal(t, &actor, log.ActorID)
	assert.Equal(t, &resource, log.ResourceID)
	assert.JSONEq(t, `{"name":"Algebra"}`, string(log.Details))
	assert.Equal(t, "req-1", log.RequestID)
	assert.Equal(t, "audit_logs", log.TableName())

	anon := NewAuditLog(AuditActionLoginFailed, "user").WithActor(uuid.Nil)
	assert.Nil(t, anon.ActorID)
	assert.JSONEq(t, `{}`, string(anon.Details))
}
