package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"go.uber.org/zap"
)

const notificationSelect = `
	SELECT n.id, n.title, n.message, n.recipient_id, n.sender_id, n.related_course_id, n.type, n.is_read, n.created_at
	FROM notifications n`

// NotificationRepository implements the repositories.NotificationRepository interface
type NotificationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB, logger *zap.Logger) repositories.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	n := &models.Notification{}
	var senderID, courseID uuid.NullUUID
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Message,
		&n.RecipientID,
		&senderID,
		&courseID,
		&n.Type,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.SenderID = uuidPtr(senderID)
	n.RelatedCourseID = uuidPtr(courseID)
	return n, nil
}

// CreateBatch inserts one row per notification. Callers run it inside a
// transaction so a failing row leaves nothing behind.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	query := `
		INSERT INTO notifications (id, title, message, recipient_id, sender_id, related_course_id, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	for _, n := range notifications {
		_, err := executor.ExecContext(ctx, query,
			n.ID,
			n.Title,
			n.Message,
			n.RecipientID,
			nullUUID(n.SenderID),
			nullUUID(n.RelatedCourseID),
			n.Type,
			n.IsRead,
			n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create notification for %s: %w", n.RecipientID, err)
		}
	}

	r.logger.Debug("notifications created", zap.Int("count", len(notifications)))
	return nil
}

// GetByID retrieves a notification visible in scope
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.Notification, error) {
	b := &queryBuilder{}
	b.where("n.id = " + b.arg(id))
	notificationScope.apply(b, scope)

	n, err := scanNotification(GetExecutor(ctx, r.db).QueryRowContext(ctx, notificationSelect+b.whereClause(), b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// List retrieves the notifications visible in scope, newest first
func (r *NotificationRepository) List(ctx context.Context, scope repositories.Scope, filter repositories.NotificationFilter) ([]*models.Notification, error) {
	b := &queryBuilder{}
	notificationScope.apply(b, scope)
	if filter.UnreadOnly {
		b.where("n.is_read = false")
	}
	query := notificationSelect + b.whereClause() + ` ORDER BY n.created_at DESC, n.id` + b.pageClause(filter.Page)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read. Marking twice is not an error.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of a recipient
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND is_read = false`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return rowsAffected(result)
}

// Delete deletes a notification
func (r *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// DetachCourse clears the course reference of notifications about a course
func (r *NotificationRepository) DetachCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET related_course_id = NULL WHERE related_course_id = $1`, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to detach course notifications: %w", err)
	}
	return rowsAffected(result)
}

// DetachUser removes a user's inbox and anonymizes what they sent
func (r *NotificationRepository) DetachUser(ctx context.Context, userID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, `DELETE FROM notifications WHERE recipient_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete received notifications: %w", err)
	}
	if _, err := executor.ExecContext(ctx, `UPDATE notifications SET sender_id = NULL WHERE sender_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to detach sent notifications: %w", err)
	}
	return nil
}
