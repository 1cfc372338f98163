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

const resourceSelect = `
	SELECT r.id, r.title, r.description, r.url, r.type, r.course_id, r.uploaded_by, r.created_at, r.updated_at
	FROM resources r`

// ResourceRepository implements the repositories.ResourceRepository interface
type ResourceRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(db *DB, logger *zap.Logger) repositories.ResourceRepository {
	return &ResourceRepository{
		db:     db,
		logger: logger,
	}
}

func scanResource(row rowScanner) (*models.Resource, error) {
	resource := &models.Resource{}
	var courseID uuid.NullUUID
	err := row.Scan(
		&resource.ID,
		&resource.Title,
		&resource.Description,
		&resource.URL,
		&resource.Type,
		&courseID,
		&resource.UploadedBy,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	resource.CourseID = uuidPtr(courseID)
	return resource, nil
}

// Create creates a new resource
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	query := `
		INSERT INTO resources (id, title, description, url, type, course_id, uploaded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		resource.ID,
		resource.Title,
		resource.Description,
		resource.URL,
		resource.Type,
		nullUUID(resource.CourseID),
		resource.UploadedBy,
		resource.CreatedAt,
		resource.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	r.logger.Debug("resource created", zap.String("id", resource.ID.String()))
	return nil
}

// GetByID retrieves a resource visible in scope
func (r *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID, scope repositories.Scope) (*models.Resource, error) {
	b := &queryBuilder{}
	b.where("r.id = " + b.arg(id))
	resourceScope.apply(b, scope)

	resource, err := scanResource(GetExecutor(ctx, r.db).QueryRowContext(ctx, resourceSelect+b.whereClause(), b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return resource, nil
}

// List retrieves the resources visible in scope, newest first
func (r *ResourceRepository) List(ctx context.Context, scope repositories.Scope, filter repositories.ResourceFilter) ([]*models.Resource, error) {
	b := &queryBuilder{}
	resourceScope.apply(b, scope)
	if filter.CourseID != nil {
		b.where("r.course_id = " + b.arg(*filter.CourseID))
	}
	query := resourceSelect + b.whereClause() + ` ORDER BY r.created_at DESC, r.id` + b.pageClause(filter.Page)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	resources := []*models.Resource{}
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource rows: %w", err)
	}
	return resources, nil
}

// Update updates a resource. uploaded_by is never written.
func (r *ResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	query := `
		UPDATE resources
		SET title = $2,
		    description = $3,
		    url = $4,
		    type = $5,
		    course_id = $6,
		    updated_at = $7
		WHERE id = $1
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		resource.ID,
		resource.Title,
		resource.Description,
		resource.URL,
		resource.Type,
		nullUUID(resource.CourseID),
		resource.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
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

// Delete deletes a resource
func (r *ResourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
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

// DeleteByCourse deletes every resource attached to a course
func (r *ResourceRepository) DeleteByCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM resources WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete course resources: %w", err)
	}
	return rowsAffected(result)
}

// DeleteByUploader deletes every resource uploaded by a user
func (r *ResourceRepository) DeleteByUploader(ctx context.Context, uploaderID uuid.UUID) (int64, error) {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM resources WHERE uploaded_by = $1`, uploaderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete uploaded resources: %w", err)
	}
	return rowsAffected(result)
}
