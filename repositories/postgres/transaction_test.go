package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unistudious/backend/repositories"
	"go.uber.org/zap"
)

func TestTransactionManager_RoutesStatementsThroughTx(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())
	events := NewEventRepository(db, zap.NewNop())
	courses := NewCourseRepository(db, zap.NewNop())
	courseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM calendar_events WHERE course_id").WithArgs(courseID).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM course_students").WithArgs(courseID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM courses").WithArgs(courseID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := tm.Begin(context.Background())
	require.NoError(t, err)
	ctx := repositories.ContextWithTransaction(context.Background(), tx)

	_, err = events.DeleteByCourse(ctx, courseID)
	require.NoError(t, err)
	require.NoError(t, courses.Delete(ctx, courseID))
	require.NoError(t, tx.Commit())

	// rollback after commit is a no-op and reaches no driver
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_Rollback(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := tm.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	tx, err := tm.Begin(context.Background())
	assert.Nil(t, tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestTransaction_CommitError(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))

	tx, err := tm.Begin(context.Background())
	require.NoError(t, err)

	err = tx.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}

func TestGetExecutor_FallsBackToPool(t *testing.T) {
	db, _ := newMockDB(t)
	assert.Equal(t, Executor(db.DB), GetExecutor(context.Background(), db))
}
