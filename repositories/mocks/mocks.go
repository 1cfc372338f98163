// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
)

// TransactionManager is a mock implementation of repositories.TransactionManager
type TransactionManager struct {
	mock.Mock
}

func (m *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

// Transaction is a mock implementation of repositories.Transaction
type Transaction struct {
	mock.Mock
}

func (m *Transaction) Commit() error {
	return m.Called().Error(0)
}

func (m *Transaction) Rollback() error {
	return m.Called().Error(0)
}

// ExpectCommit wires a transaction that begins and commits
func ExpectCommit(txMgr *TransactionManager) *Transaction {
	tx := new(Transaction)
	txMgr.On("Begin", mock.Anything).Return(tx, nil)
	tx.On("Commit").Return(nil)
	return tx
}

// ExpectRollback wires a transaction that begins and rolls back
func ExpectRollback(txMgr *TransactionManager) *Transaction {
	tx := new(Transaction)
	txMgr.On("Begin", mock.Anything).Return(tx, nil)
	tx.On("Rollback").Return(nil)
	return tx
}

// UserRepository is a mock implementation of repositories.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) List(ctx context.Context, filter repositories.UserFilter) ([]*models.User, error) {
	args := m.Called(ctx, filter)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Roles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserRole, error) {
	args := m.Called(ctx, ids)
	if r := args.Get(0); r != nil {
		return r.(map[uuid.UUID]models.UserRole), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// CourseRepository is a mock implementation of repositories.CourseRepository
type CourseRepository struct {
	mock.Mock
}

func (m *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	return m.Called(ctx, course).Error(0)
}

func (m *CourseRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.Course, error) {
	args := m.Called(ctx, id, scope)
	if c := args.Get(0); c != nil {
		return c.(*models.Course), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CourseRepository) List(ctx context.Context, scope repositories.Scope, page repositories.Page) ([]*models.Course, error) {
	args := m.Called(ctx, scope, page)
	if c := args.Get(0); c != nil {
		return c.([]*models.Course), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	return m.Called(ctx, course).Error(0)
}

func (m *CourseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *CourseRepository) AddStudents(ctx context.Context, courseID uuid.UUID, studentIDs []uuid.UUID) (int64, error) {
	args := m.Called(ctx, courseID, studentIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CourseRepository) RemoveStudent(ctx context.Context, courseID, studentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, courseID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *CourseRepository) StudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, courseID)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CourseRepository) CountByTeacher(ctx context.Context, teacherID uuid.UUID) (int, error) {
	args := m.Called(ctx, teacherID)
	return args.Int(0), args.Error(1)
}

func (m *CourseRepository) RemoveStudentEverywhere(ctx context.Context, studentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(int64), args.Error(1)
}

// EventRepository is a mock implementation of repositories.EventRepository
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *EventRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.CalendarEvent, error) {
	args := m.Called(ctx, id, scope)
	if e := args.Get(0); e != nil {
		return e.(*models.CalendarEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) List(ctx context.Context, scope repositories.Scope, filter repositories.EventFilter) ([]*models.CalendarEvent, error) {
	args := m.Called(ctx, scope, filter)
	if e := args.Get(0); e != nil {
		return e.([]*models.CalendarEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *EventRepository) DeleteByCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	args := m.Called(ctx, courseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *EventRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// ResourceRepository is a mock implementation of repositories.ResourceRepository
type ResourceRepository struct {
	mock.Mock
}

func (m *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	return m.Called(ctx, resource).Error(0)
}

func (m *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.Resource, error) {
	args := m.Called(ctx, id, scope)
	if r := args.Get(0); r != nil {
		return r.(*models.Resource), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ResourceRepository) List(ctx context.Context, scope repositories.Scope, filter repositories.ResourceFilter) ([]*models.Resource, error) {
	args := m.Called(ctx, scope, filter)
	if r := args.Get(0); r != nil {
		return r.([]*models.Resource), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	return m.Called(ctx, resource).Error(0)
}

func (m *ResourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ResourceRepository) DeleteByCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	args := m.Called(ctx, courseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ResourceRepository) DeleteByUploader(ctx context.Context, uploaderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, uploaderID)
	return args.Get(0).(int64), args.Error(1)
}

// NotificationRepository is a mock implementation of repositories.NotificationRepository
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	return m.Called(ctx, notifications).Error(0)
}

func (m *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.Notification, error) {
	args := m.Called(ctx, id, scope)
	if n := args.Get(0); n != nil {
		return n.(*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) List(ctx context.Context, scope repositories.Scope, filter repositories.NotificationFilter) ([]*models.Notification, error) {
	args := m.Called(ctx, scope, filter)
	if n := args.Get(0); n != nil {
		return n.([]*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *NotificationRepository) DetachCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	args := m.Called(ctx, courseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) DetachUser(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

// AuditRepository is a mock implementation of repositories.AuditRepository
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepository) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	args := m.Called(ctx, filter)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ repositories.TransactionManager     = (*TransactionManager)(nil)
	_ repositories.UserRepository         = (*UserRepository)(nil)
	_ repositories.CourseRepository       = (*CourseRepository)(nil)
	_ repositories.EventRepository        = (*EventRepository)(nil)
	_ repositories.ResourceRepository     = (*ResourceRepository)(nil)
	_ repositories.NotificationRepository = (*NotificationRepository)(nil)
	_ repositories.AuditRepository        = (*AuditRepository)(nil)
)
