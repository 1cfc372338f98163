package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserRole represents the role of a principal in the school
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleProfessor UserRole = "professor"
	RoleAdmin     UserRole = "admin"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return true
	}
	return false
}

// EntrySchoolLevel is the only school level that has no section.
const EntrySchoolLevel = "1st year"

// SchoolLevels lists the accepted student school levels.
var SchoolLevels = []string{EntrySchoolLevel, "2nd year", "3rd year", "4th year"}

// Sections lists the accepted sections for school levels past the entry level.
var Sections = []string{"Science", "Mathematics", "Computer Science", "Economics", "Technology", "Literature"}

// IsSchoolLevel reports whether level is a known school level
func IsSchoolLevel(level string) bool {
	return contains(SchoolLevels, level)
}

// IsSection reports whether section is a known section
func IsSection(section string) bool {
	return contains(Sections, section)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// User is an account able to authenticate against the API
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`

	// Student only
	SchoolLevel *string `json:"school_level,omitempty" db:"school_level"`
	Section     *string `json:"section,omitempty" db:"section"`

	// Professor only
	Speciality *string `json:"speciality,omitempty" db:"speciality"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(firstName, lastName, email string, role UserRole) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     NormalizeEmail(email),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OptionalField maps a blank profile value to nil, the same as an absent one
func OptionalField(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsProfessor returns true if the user has professor role
func (u *User) IsProfessor() bool {
	return u.Role == RoleProfessor
}

// IsStudent returns true if the user has student role
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetPassword hashes and stores the password
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Principal returns the authorization view of the user
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, IsAdmin: u.IsAdmin()}
}

// ProfileError describes an academic profile inconsistency
type ProfileError struct {
	Field  string
	Reason string
}

func (e *ProfileError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidateProfile checks the role specific academic fields.
// Students need a known school level; section is null iff the level is the entry level.
// Speciality is reserved to professors.
func (u *User) ValidateProfile() error {
	switch u.Role {
	case RoleStudent:
		if u.SchoolLevel == nil || !IsSchoolLevel(*u.SchoolLevel) {
			return &ProfileError{Field: "school_level", Reason: "must be one of " + strings.Join(SchoolLevels, ", ")}
		}
		if *u.SchoolLevel == EntrySchoolLevel {
			if u.Section != nil {
				return &ProfileError{Field: "section", Reason: "must be empty for " + EntrySchoolLevel}
			}
		} else if u.Section == nil || !IsSection(*u.Section) {
			return &ProfileError{Field: "section", Reason: "must be one of " + strings.Join(Sections, ", ")}
		}
		if u.Speciality != nil {
			return &ProfileError{Field: "speciality", Reason: "only professors have a speciality"}
		}
	case RoleProfessor:
		if u.SchoolLevel != nil || u.Section != nil {
			return &ProfileError{Field: "school_level", Reason: "only students have a school level"}
		}
	case RoleAdmin:
		if u.SchoolLevel != nil || u.Section != nil {
			return &ProfileError{Field: "school_level", Reason: "only students have a school level"}
		}
		if u.Speciality != nil {
			return &ProfileError{Field: "speciality", Reason: "only professors have a speciality"}
		}
	default:
		return &ProfileError{Field: "role", Reason: "unknown role"}
	}
	return nil
}

// Principal is the authenticated actor of a request
type Principal struct {
	ID      uuid.UUID `json:"id"`
	Role    UserRole  `json:"role"`
	IsAdmin bool      `json:"is_admin"`
}
