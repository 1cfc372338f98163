// Package ratelimit throttles repeated failed logins per email address.
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unistudious/backend/models"
	"go.uber.org/zap"
)

// Config holds the sliding window parameters
type Config struct {
	MaxFailures int
	Window      time.Duration
}

// Result represents the outcome of a throttle check
type Result struct {
	Allowed   bool
	Failures  int
	Remaining int
	RetryAt   time.Time
}

// LoginThrottle counts failed logins in a sliding window stored in PostgreSQL
type LoginThrottle struct {
	db     *sql.DB
	logger *zap.Logger
	config Config
	now    func() time.Time
}

// NewLoginThrottle creates a new LoginThrottle instance
func NewLoginThrottle(db *sql.DB, logger *zap.Logger, config Config) *LoginThrottle {
	return &LoginThrottle{
		db:     db,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Check reports whether another login attempt is allowed for the email
func (s *LoginThrottle) Check(ctx context.Context, email string) (*Result, error) {
	email = models.NormalizeEmail(email)
	now := s.now()
	windowStart := now.Add(-s.config.Window)

	query := `
		SELECT COUNT(*), MIN(attempted_at)
		FROM login_attempts
		WHERE email = $1
		  AND attempted_at >= $2
	`

	var count int
	var oldest sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, email, windowStart).Scan(&count, &oldest); err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}

	if count >= s.config.MaxFailures {
		retryAt := now.Add(s.config.Window)
		if oldest.Valid {
			retryAt = oldest.Time.Add(s.config.Window)
		}
		return &Result{Allowed: false, Failures: count, RetryAt: retryAt}, nil
	}

	return &Result{Allowed: true, Failures: count, Remaining: s.config.MaxFailures - count}, nil
}

// RecordFailure stores a failed attempt
func (s *LoginThrottle) RecordFailure(ctx context.Context, email string) error {
	query := `
		INSERT INTO login_attempts (email, attempted_at)
		VALUES ($1, $2)
	`

	if _, err := s.db.ExecContext(ctx, query, models.NormalizeEmail(email), s.now()); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// Reset forgets the failures of an email after a successful login
func (s *LoginThrottle) Reset(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE email = $1`, models.NormalizeEmail(email)); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// CleanupOldAttempts removes attempts older than the window to keep the table small
func (s *LoginThrottle) CleanupOldAttempts(ctx context.Context) (int64, error) {
	cutoffTime := s.now().Add(-s.config.Window)

	result, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("cleaned up old login attempts",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("cutoff_time", cutoffTime))

	return rowsAffected, nil
}

// StartCleanupWorker periodically removes expired attempts until ctx is done
func (s *LoginThrottle) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started login throttle cleanup worker", zap.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldAttempts(ctx); err != nil {
				s.logger.Error("failed to cleanup old login attempts", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping login throttle cleanup worker")
			return
		}
	}
}
