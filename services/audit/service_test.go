package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// MockAuditRepository records inserted logs
type MockAuditRepository struct {
	mock.Mock
	mu           sync.Mutex
	insertedLogs []*models.AuditLog
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	m.mu.Lock()
	m.insertedLogs = append(m.insertedLogs, log)
	m.mu.Unlock()
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	args := m.Called(ctx, filter)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) GetInsertedLogs() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, len(m.insertedLogs))
	copy(out, m.insertedLogs)
	return out
}

func TestAuditService_StartStop(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	service := NewAuditService(mockRepo, zaptest.NewLogger(t), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())

	stats := service.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	assert.Error(t, service.Start())

	require.NoError(t, service.Stop(5*time.Second))
	assert.False(t, service.GetStats().Started)

	// stopping twice and logging after stop both fail without panicking
	assert.Error(t, service.Stop(time.Second))
	assert.Error(t, service.LogEvent(models.NewAuditLog(models.AuditActionCourseCreated, "course")))
}

func TestAuditService_LogEvent_NotStarted(t *testing.T) {
	service := NewAuditService(new(MockAuditRepository), zap.NewNop(), DefaultConfig())
	err := service.LogEvent(models.NewAuditLog(models.AuditActionCourseCreated, "course"))
	assert.Error(t, err)
}

func TestAuditService_Record(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(mockRepo, zaptest.NewLogger(t), Config{BufferSize: 100, WorkerCount: 2})
	require.NoError(t, service.Start())

	actor := uuid.New()
	courseID := uuid.New()
	ctx := WithRequestMeta(context.Background(), RequestMeta{RequestID: "req-1", IPAddress: "10.0.0.1", UserAgent: "curl"})
	service.Record(ctx, models.NewAuditLog(models.AuditActionCourseCreated, "course").WithActor(actor).WithResource(courseID))

	// Stop drains the queue
	require.NoError(t, service.Stop(5*time.Second))

	logs := mockRepo.GetInsertedLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionCourseCreated, logs[0].Action)
	assert.Equal(t, actor, *logs[0].ActorID)
	assert.Equal(t, courseID, *logs[0].ResourceID)
	assert.Equal(t, "req-1", logs[0].RequestID)
	assert.Equal(t, "10.0.0.1", logs[0].IPAddress)
	assert.Equal(t, "curl", logs[0].UserAgent)
}

func TestAuditService_Record_NeverFails(t *testing.T) {
	service := NewAuditService(new(MockAuditRepository), zap.NewNop(), DefaultConfig())
	assert.NotPanics(t, func() {
		service.Record(context.Background(), models.NewAuditLog(models.AuditActionLoginFailed, "user"))
	})
}

func TestAuditService_InsertErrorIsSwallowed(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())
	service.Record(context.Background(), models.NewAuditLog(models.AuditActionUserDeleted, "user"))
	require.NoError(t, service.Stop(5*time.Second))

	assert.Len(t, mockRepo.GetInsertedLogs(), 1)
}

func TestAuditService_ConcurrentLogging(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 1000, WorkerCount: 5})
	require.NoError(t, service.Start())

	goroutineCount := 10
	eventsPerGoroutine := 10
	var wg sync.WaitGroup
	for i := 0; i < goroutineCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				service.Record(context.Background(), models.NewAuditLog(models.AuditActionEventCreated, "event"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, service.Stop(5*time.Second))

	assert.Len(t, mockRepo.GetInsertedLogs(), goroutineCount*eventsPerGoroutine)
}

func TestAuditService_BufferFull(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		time.Sleep(50 * time.Millisecond)
	})

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 5, WorkerCount: 1})
	require.NoError(t, service.Start())

	successCount := 0
	for i := 0; i < 20; i++ {
		if err := service.LogEvent(models.NewAuditLog(models.AuditActionNotificationSent, "notification")); err == nil {
			successCount++
		}
	}
	assert.Less(t, successCount, 20)

	require.NoError(t, service.Stop(5*time.Second))
}

func TestAuditService_StopTimeout(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		time.Sleep(2 * time.Second)
	})

	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())
	require.NoError(t, service.LogEvent(models.NewAuditLog(models.AuditActionCourseDeleted, "course")))

	err := service.Stop(100 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestAuditService_List(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	service := NewAuditService(mockRepo, zap.NewNop(), DefaultConfig())

	action := models.AuditActionLoginFailed
	expected := []*models.AuditLog{models.NewAuditLog(action, "user")}
	mockRepo.On("List", mock.Anything, repositories.AuditFilter{
		Action: &action,
		Page:   repositories.Page{Limit: services.DefaultPageLimit},
	}).Return(expected, nil)

	logs, err := service.List(context.Background(), repositories.AuditFilter{Action: &action})
	require.NoError(t, err)
	assert.Equal(t, expected, logs)

	mockRepo.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	_, err = service.List(context.Background(), repositories.AuditFilter{Page: repositories.Page{Limit: 5}})
	assert.True(t, services.IsInternalError(err))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 1000, config.BufferSize)
	assert.Equal(t, 2, config.WorkerCount)
}

func TestRequestMetaFromContext(t *testing.T) {
	_, ok := RequestMetaFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithRequestMeta(context.Background(), RequestMeta{RequestID: "abc"})
	meta, ok := RequestMetaFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", meta.RequestID)
}

func TestAuditService_HealthCheck(t *testing.T) {
	service := NewAuditService(new(MockAuditRepository), zap.NewNop(), Config{BufferSize: 1, WorkerCount: 1})
	assert.Error(t, service.HealthCheck(context.Background()), "not started")

	require.NoError(t, service.Start())
	assert.NoError(t, service.HealthCheck(context.Background()))

	require.NoError(t, service.Stop(time.Second))
	assert.Error(t, service.HealthCheck(context.Background()), "stopped")
}
