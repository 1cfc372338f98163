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

const eventSelect = `
	SELECT e.id, e.title, e.description, e.start_at, e.end_at, e.owner_id, e.course_id, e.type, e.created_at, e.updated_at
	FROM calendar_events e`

// EventRepository implements the repositories.EventRepository interface
type EventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEventRepository creates a new calendar event repository
func NewEventRepository(db *DB, logger *zap.Logger) repositories.EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	event := &models.CalendarEvent{}
	var end sql.NullTime
	var courseID uuid.NullUUID
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Start,
		&end,
		&event.OwnerID,
		&courseID,
		&event.Type,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Start = event.Start.UTC()
	if end.Valid {
		t := end.Time.UTC()
		event.End = &t
	}
	event.CourseID = uuidPtr(courseID)
	return event, nil
}

// Create creates a new calendar event
func (r *EventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (id, title, description, start_at, end_at, owner_id, course_id, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Start,
		event.End,
		event.OwnerID,
		nullUUID(event.CourseID),
		event.Type,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}

	r.logger.Debug("calendar event created", zap.String("id", event.ID.String()))
	return nil
}

// GetByID retrieves an event visible in scope
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.CalendarEvent, error) {
	b := &queryBuilder{}
	b.where("e.id = " + b.arg(id))
	eventScope.apply(b, scope)

	event, err := scanEvent(GetExecutor(ctx, r.db).QueryRowContext(ctx, eventSelect+b.whereClause(), b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get calendar event: %w", err)
	}
	return event, nil
}

// List retrieves the events visible in scope ordered by start
func (r *EventRepository) List(ctx context.Context, scope repositories.Scope, filter repositories.EventFilter) ([]*models.CalendarEvent, error) {
	b := &queryBuilder{}
	eventScope.apply(b, scope)
	if filter.From != nil {
		b.where("COALESCE(e.end_at, e.start_at) >= " + b.arg(*filter.From))
	}
	if filter.To != nil {
		b.where("e.start_at < " + b.arg(*filter.To))
	}
	if filter.CourseID != nil {
		b.where("e.course_id = " + b.arg(*filter.CourseID))
	}
	query := eventSelect + b.whereClause() + ` ORDER BY e.start_at, e.id` + b.pageClause(filter.Page)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer rows.Close()

	events := []*models.CalendarEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar event rows: %w", err)
	}
	return events, nil
}

// Update updates a calendar event. owner_id is never written.
func (r *EventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	query := `
		UPDATE calendar_events
		SET title = $2,
		    description = $3,
		    start_at = $4,
		    end_at = $5,
		    course_id = $6,
		    type = $7,
		    updated_at = $8
		WHERE id = $1
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Start,
		event.End,
		nullUUID(event.CourseID),
		event.Type,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
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

// Delete deletes a calendar event
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
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

// DeleteByCourse deletes every event attached to a course
func (r *EventRepository) DeleteByCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM calendar_events WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete course events: %w", err)
	}
	return rowsAffected(result)
}

// DeleteByOwner deletes every event created by a user
func (r *EventRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM calendar_events WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete owned events: %w", err)
	}
	return rowsAffected(result)
}
