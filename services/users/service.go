// Package users implements accounts: public registration and login, and the
// admin-only account management.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/audit"
	"github.com/unistudious/backend/services/authz"
	"github.com/unistudious/backend/services/ratelimit"
	"go.uber.org/zap"
)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit
	MaxPasswordBytes = 72
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// LoginLimiter throttles failed logins
type LoginLimiter interface {
	Check(ctx context.Context, email string) (*ratelimit.Result, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// PrincipalForgetter drops cached principals
type PrincipalForgetter interface {
	Forget(id uuid.UUID)
}

// RegisterInput holds a public student registration
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	SchoolLevel *string
	Section     *string
}

// CreateInput holds an account created by an admin
type CreateInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	Role        models.UserRole
	SchoolLevel *string
	Section     *string
	Speciality  *string
}

// UpdateInput holds the fields to merge into an account.
// Nil fields are left untouched; an empty string clears an optional profile field.
type UpdateInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Password    *string
	Role        *models.UserRole
	SchoolLevel *string
	Section     *string
	Speciality  *string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// UserService handles account operations
type UserService struct {
	txMgr         repositories.TransactionManager
	users         repositories.UserRepository
	courses       repositories.CourseRepository
	events        repositories.EventRepository
	resources     repositories.ResourceRepository
	notifications repositories.NotificationRepository
	tokens        TokenIssuer
	limiter       LoginLimiter
	principals    PrincipalForgetter
	guard         *authz.Guard
	audit         audit.Recorder
	logger        *zap.Logger
}

// Deps groups the collaborators of a UserService
type Deps struct {
	TxMgr      repositories.TransactionManager
	Repos      *repositories.Repositories
	Tokens     TokenIssuer
	Limiter    LoginLimiter
	Principals PrincipalForgetter
	Audit      audit.Recorder
	Logger     *zap.Logger
}

// NewUserService creates a new UserService instance
func NewUserService(d Deps) *UserService {
	return &UserService{
		txMgr:         d.TxMgr,
		users:         d.Repos.Users,
		courses:       d.Repos.Courses,
		events:        d.Repos.Events,
		resources:     d.Repos.Resources,
		notifications: d.Repos.Notifications,
		tokens:        d.Tokens,
		limiter:       d.Limiter,
		principals:    d.Principals,
		guard:         authz.NewGuard(),
		audit:         d.Audit,
		logger:        d.Logger,
	}
}

func profileError(err error) error {
	var pe *models.ProfileError
	if errors.As(err, &pe) {
		return services.NewValidationError(pe.Field, pe.Field+" "+pe.Reason)
	}
	return services.ErrInvalidProfile
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return services.NewValidationError("password", "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordBytes {
		return services.NewValidationError("password", "password must be at most 72 bytes")
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\n")
}

func (s *UserService) build(in CreateInput) (*models.User, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, services.NewValidationError("first_name", "first_name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return nil, services.NewValidationError("last_name", "last_name is required")
	}
	if !validEmail(models.NormalizeEmail(in.Email)) {
		return nil, services.ErrInvalidEmail
	}
	if !in.Role.Valid() {
		return nil, services.NewValidationError("role", "role must be one of student, professor, admin")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	user := models.NewUser(strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), in.Email, in.Role)
	user.SchoolLevel = models.OptionalField(in.SchoolLevel)
	user.Section = models.OptionalField(in.Section)
	user.Speciality = models.OptionalField(in.Speciality)
	if err := user.ValidateProfile(); err != nil {
		return nil, profileError(err)
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}
	return user, nil
}

func (s *UserService) insert(ctx context.Context, user *models.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return services.ErrDuplicateEmail
		}
		return services.WrapInternal("failed to create user", err)
	}
	return nil
}

// Register creates a student account
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.build(CreateInput{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Password:    in.Password,
		Role:        models.RoleStudent,
		SchoolLevel: in.SchoolLevel,
		Section:     in.Section,
	})
	if err != nil {
		return nil, err
	}
	if err := s.insert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("student registered", zap.String("user_id", user.ID.String()))
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionUserRegistered, string(authz.ResourceUser)).
		WithActor(user.ID).
		WithResource(user.ID))

	return user, nil
}

// Login checks credentials and issues a session token
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = models.NormalizeEmail(email)

	check, err := s.limiter.Check(ctx, email)
	if err != nil {
		return nil, services.WrapInternal("failed to check login throttle", err)
	}
	if !check.Allowed {
		return nil, services.ErrTooManyLoginAttempts.WithDetail("retry_at", check.RetryAt.UTC())
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapInternal("failed to load user", err)
	}
	if user == nil || !user.CheckPassword(password) {
		if err := s.limiter.RecordFailure(ctx, email); err != nil {
			s.logger.Error("failed to record login failure", zap.Error(err))
		}
		s.audit.Record(ctx, models.NewAuditLog(models.AuditActionLoginFailed, string(authz.ResourceUser)).
			WithDetails(map[string]interface{}{"email": email}))
		return nil, services.ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn("failed to reset login throttle", zap.Error(err))
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, services.WrapInternal("failed to issue token", err)
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionLoginSucceeded, string(authz.ResourceUser)).
		WithActor(user.ID).
		WithResource(user.ID))

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Me returns the principal's own account
func (s *UserService) Me(ctx context.Context, p models.Principal) (*models.User, error) {
	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrUserNotFound, "failed to get user")
	}
	return user, nil
}

// Create creates an account of any role
func (s *UserService) Create(ctx context.Context, p models.Principal, in CreateInput) (*models.User, error) {
	if err := s.guard.CheckRole(p, authz.ResourceUser, authz.OpCreate); err != nil {
		return nil, err
	}
	user, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.insert(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionUserCreated, string(authz.ResourceUser)).
		WithActor(p.ID).
		WithResource(user.ID).
		WithDetails(map[string]interface{}{"email": user.Email, "role": user.Role}))

	return user, nil
}

// List returns accounts, optionally of one role
func (s *UserService) List(ctx context.Context, p models.Principal, filter repositories.UserFilter) ([]*models.User, error) {
	if err := s.guard.CheckRole(p, authz.ResourceUser, authz.OpRead); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, services.NewValidationError("role", "role must be one of student, professor, admin")
	}
	filter.Page = services.NormalizePage(filter.Page)
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list users", err)
	}
	return users, nil
}

// Get returns one account
func (s *UserService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.User, error) {
	if err := s.guard.CheckRole(p, authz.ResourceUser, authz.OpRead); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrUserNotFound, "failed to get user")
	}
	return user, nil
}

func setOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	value := *v
	*dst = &value
}

// Update merges the input into an account. A role change drops the profile
// fields the new role cannot carry, then the profile is validated again.
func (s *UserService) Update(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateInput) (*models.User, error) {
	if err := s.guard.CheckRole(p, authz.ResourceUser, authz.OpUpdate); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrUserNotFound, "failed to load user")
	}
	previous := user.Role

	changes := map[string]interface{}{}
	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return nil, services.NewValidationError("first_name", "first_name cannot be empty")
		}
		user.FirstName = strings.TrimSpace(*in.FirstName)
		changes["first_name"] = user.FirstName
	}
	if in.LastName != nil {
		if strings.TrimSpace(*in.LastName) == "" {
			return nil, services.NewValidationError("last_name", "last_name cannot be empty")
		}
		user.LastName = strings.TrimSpace(*in.LastName)
		changes["last_name"] = user.LastName
	}
	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if !validEmail(email) {
			return nil, services.ErrInvalidEmail
		}
		user.Email = email
		changes["email"] = email
	}
	if in.Role != nil && *in.Role != user.Role {
		if !in.Role.Valid() {
			return nil, services.NewValidationError("role", "role must be one of student, professor, admin")
		}
		if err := s.canLeaveRole(ctx, user); err != nil {
			return nil, err
		}
		user.Role = *in.Role
		if user.Role != models.RoleStudent {
			user.SchoolLevel, user.Section = nil, nil
		}
		if user.Role != models.RoleProfessor {
			user.Speciality = nil
		}
		changes["role"] = user.Role
	}
	setOptional(&user.SchoolLevel, in.SchoolLevel)
	setOptional(&user.Section, in.Section)
	setOptional(&user.Speciality, in.Speciality)
	if err := user.ValidateProfile(); err != nil {
		return nil, profileError(err)
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		if err := user.SetPassword(*in.Password); err != nil {
			return nil, services.WrapInternal("failed to hash password", err)
		}
		changes["password"] = "changed"
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, user, previous); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateEmail
		}
		return nil, services.NotFoundOr(err, services.ErrUserNotFound, "failed to update user")
	}
	s.forget(user.ID)

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionUserUpdated, string(authz.ResourceUser)).
		WithActor(p.ID).
		WithResource(user.ID).
		WithDetails(map[string]interface{}{"changes": changes}))

	return user, nil
}

// canLeaveRole refuses to move a professor who still teaches out of the role
func (s *UserService) canLeaveRole(ctx context.Context, user *models.User) error {
	if !user.IsProfessor() {
		return nil
	}
	return s.ensureNoCourses(ctx, user.ID)
}

// save writes the account. A student moved to another role loses every
// enrolment in the same transaction.
func (s *UserService) save(ctx context.Context, user *models.User, previous models.UserRole) error {
	if previous != models.RoleStudent || user.Role == models.RoleStudent {
		return s.users.Update(ctx, user)
	}
	return services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		dropped, err := s.courses.RemoveStudentEverywhere(ctx, user.ID)
		if err != nil {
			return err
		}
		if dropped > 0 {
			s.logger.Info("enrolments dropped on role change",
				zap.String("user_id", user.ID.String()),
				zap.Int64("courses", dropped))
		}
		return s.users.Update(ctx, user)
	})
}

func (s *UserService) ensureNoCourses(ctx context.Context, professorID uuid.UUID) error {
	count, err := s.courses.CountByTeacher(ctx, professorID)
	if err != nil {
		return services.WrapInternal("failed to count courses", err)
	}
	if count > 0 {
		return services.ErrProfessorHasCourses.WithDetail("courses", count)
	}
	return nil
}

// Delete removes an account with its enrolments, events, uploads and inbox.
// Professors who still teach are refused, and so is deleting oneself.
func (s *UserService) Delete(ctx context.Context, p models.Principal, id uuid.UUID) error {
	if err := s.guard.CheckRole(p, authz.ResourceUser, authz.OpDelete); err != nil {
		return err
	}
	if id == p.ID {
		return services.ErrSelfDelete
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return services.NotFoundOr(err, services.ErrUserNotFound, "failed to load user")
	}
	if user.IsProfessor() {
		if err := s.ensureNoCourses(ctx, id); err != nil {
			return err
		}
	}

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		if _, err := s.courses.RemoveStudentEverywhere(ctx, id); err != nil {
			return err
		}
		if _, err := s.events.DeleteByOwner(ctx, id); err != nil {
			return err
		}
		if _, err := s.resources.DeleteByUploader(ctx, id); err != nil {
			return err
		}
		if err := s.notifications.DetachUser(ctx, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, id)
	})
	if err != nil {
		return services.NotFoundOr(err, services.ErrUserNotFound, "failed to delete user")
	}
	s.forget(id)

	s.logger.Info("user deleted", zap.String("user_id", id.String()), zap.String("role", string(user.Role)))
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionUserDeleted, string(authz.ResourceUser)).
		WithActor(p.ID).
		WithResource(id).
		WithDetails(map[string]interface{}{"email": user.Email, "role": user.Role}))

	return nil
}

func (s *UserService) forget(id uuid.UUID) {
	if s.principals != nil {
		s.principals.Forget(id)
	}
}

// Provision creates the account, or updates the role, names and password of an
// existing account with the same email. It runs without a principal and is
// meant for operators (CLI, start-up bootstrap).
func (s *UserService) Provision(ctx context.Context, in CreateInput) (*models.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, models.NormalizeEmail(in.Email))
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, services.WrapInternal("failed to load user", err)
	}

	if existing == nil {
		user, err := s.build(in)
		if err != nil {
			return nil, false, err
		}
		if err := s.insert(ctx, user); err != nil {
			return nil, false, err
		}
		s.audit.Record(ctx, models.NewAuditLog(models.AuditActionUserCreated, string(authz.ResourceUser)).
			WithResource(user.ID).
			WithDetails(map[string]interface{}{"email": user.Email, "role": user.Role, "provisioned": true}))
		return user, true, nil
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(in.FirstName) != "" {
		existing.FirstName = strings.TrimSpace(in.FirstName)
	}
	if strings.TrimSpace(in.LastName) != "" {
		existing.LastName = strings.TrimSpace(in.LastName)
	}
	previous := existing.Role
	if in.Role.Valid() && in.Role != existing.Role {
		if err := s.canLeaveRole(ctx, existing); err != nil {
			return nil, false, err
		}
		existing.Role = in.Role
		existing.SchoolLevel = models.OptionalField(in.SchoolLevel)
		existing.Section = models.OptionalField(in.Section)
		existing.Speciality = models.OptionalField(in.Speciality)
		if err := existing.ValidateProfile(); err != nil {
			return nil, false, profileError(err)
		}
	}
	if err := existing.SetPassword(in.Password); err != nil {
		return nil, false, services.WrapInternal("failed to hash password", err)
	}
	existing.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, existing, previous); err != nil {
		return nil, false, services.WrapInternal("failed to update user", err)
	}
	s.forget(existing.ID)
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionUserUpdated, string(authz.ResourceUser)).
		WithResource(existing.ID).
		WithDetails(map[string]interface{}{"provisioned": true}))
	return existing, false, nil
}

// EnsureAdmin creates an admin account when no account uses the email yet.
// An existing account is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return false, services.WrapInternal("failed to load user", err)
	}

	_, created, err := s.Provision(ctx, CreateInput{
		FirstName: "Admin",
		LastName:  "Account",
		Email:     email,
		Password:  password,
		Role:      models.RoleAdmin,
	})
	return created, err
}

// ResetPassword sets a new password on the account with the given email
func (s *UserService) ResetPassword(ctx context.Context, email, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return services.NotFoundOr(err, services.ErrUserNotFound, "failed to load user")
	}
	if err := user.SetPassword(password); err != nil {
		return services.WrapInternal("failed to hash password", err)
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return services.NotFoundOr(err, services.ErrUserNotFound, "failed to update user")
	}
	s.forget(user.ID)
	return nil
}
