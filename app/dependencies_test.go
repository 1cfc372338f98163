package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unistudious/backend/config"
	"github.com/unistudious/backend/repositories/postgres"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var userRowColumns = []string{"id", "first_name", "last_name", "email", "password_hash", "role", "school_level", "section", "speciality", "created_at", "updated_at"}

func newMockFactory(t *testing.T, logger *zap.Logger) (*postgres.RepositoryFactory, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(sqlDB, logger), logger), mock
}

func TestNewDependenciesWithFactory(t *testing.T) {
	t.Run("wires every component", func(t *testing.T) {
		ctx := context.Background()
		logger := zaptest.NewLogger(t)
		factory, mock := newMockFactory(t, logger)

		deps, err := NewDependenciesWithFactory(ctx, testConfig(t), factory, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		// Verify infrastructure
		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Repos)
		assert.NotNil(t, deps.TxManager)

		// Verify auth
		assert.NotNil(t, deps.Tokens)
		assert.NotNil(t, deps.Resolver)
		assert.NotNil(t, deps.LoginThrottle)
		assert.NotNil(t, deps.AuthMiddleware)

		// Verify services and handlers
		assert.NotNil(t, deps.Audit)
		assert.NotNil(t, deps.Users)
		assert.NotNil(t, deps.Courses)
		assert.NotNil(t, deps.Events)
		assert.NotNil(t, deps.Resources)
		assert.NotNil(t, deps.Notifications)
		assert.NotNil(t, deps.CourseHandler)
		assert.NotNil(t, deps.AuditHandler)

		mock.ExpectClose()
		require.NoError(t, deps.Close(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("schema failure", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		factory, mock := newMockFactory(t, logger)
		cfg := testConfig(t)
		cfg.Database.AutoMigrate = true

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

		deps, err := NewDependenciesWithFactory(context.Background(), cfg, factory, logger)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize schema")
	})

	t.Run("existing bootstrap admin is left alone", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		factory, mock := newMockFactory(t, logger)
		cfg := testConfig(t)
		cfg.Auth.BootstrapAdminEmail = "root@school.test"
		cfg.Auth.BootstrapAdminPassword = "change-me-now"

		now := time.Now().UTC()
		mock.ExpectQuery("FROM users WHERE email").
			WithArgs("root@school.test").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow("0b8f2f5e-8a44-4cf1-9d0c-6f1f7b3f2a10", "Admin", "Account", "root@school.test", "hash", "admin", nil, nil, nil, now, now))

		deps, err := NewDependenciesWithFactory(context.Background(), cfg, factory, logger)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())

		mock.ExpectClose()
		require.NoError(t, deps.Close(context.Background()))
	})

	t.Run("bootstrap lookup failure", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		factory, mock := newMockFactory(t, logger)
		cfg := testConfig(t)
		cfg.Auth.BootstrapAdminEmail = "root@school.test"
		cfg.Auth.BootstrapAdminPassword = "change-me-now"

		mock.ExpectQuery("FROM users WHERE email").WillReturnError(errors.New("connection reset"))

		deps, err := NewDependenciesWithFactory(context.Background(), cfg, factory, logger)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to bootstrap admin")
	})
}

func TestNewDependencies_DatabaseFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Host = "invalid-host-that-does-not-exist"

	deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to initialize database")
}

func TestDependenciesClose(t *testing.T) {
	ctx := context.Background()
	// workers may log after the test returns
	logger := zap.NewNop()
	factory, mock := newMockFactory(t, logger)

	deps, err := NewDependenciesWithFactory(ctx, testConfig(t), factory, logger)
	require.NoError(t, err)

	deps.StartWorkers(ctx)

	mock.ExpectClose()
	require.NoError(t, deps.Close(ctx))

	// Second close is a no-op
	assert.NoError(t, deps.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Test helpers

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		Database: config.DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "unistudious_test",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		},
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-that-is-long-enough-for-hs256",
			Issuer:             "unistudious-test",
			TokenTTL:           time.Hour,
			CookieName:         "auth_token",
			PrincipalCacheSize: 10,
			PrincipalCacheTTL:  time.Minute,
		},
		CORS:          config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Audit:         config.AuditConfig{BufferSize: 10, WorkerCount: 1},
		LoginThrottle: config.LoginThrottleConfig{MaxFailures: 5, Window: 15 * time.Minute, CleanupInterval: time.Hour},
	}
	cfg.Server.Port = 8080
	cfg.Server.RequestTimeout = 5 * time.Second
	return cfg
}
