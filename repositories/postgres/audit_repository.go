package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, actor_id, action, resource_type, resource_id,
			details, ip_address, user_agent, request_id, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	details := []byte(log.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		nullUUID(log.ActorID),
		log.Action,
		log.ResourceType,
		nullUUID(log.ResourceID),
		details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// List retrieves audit logs, newest first
func (r *AuditRepository) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	b := &queryBuilder{}
	if filter.ActorID != nil {
		b.where("actor_id = " + b.arg(*filter.ActorID))
	}
	if filter.Action != nil {
		b.where("action = " + b.arg(*filter.Action))
	}
	query := `
		SELECT id, actor_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, timestamp
		FROM audit_logs` + b.whereClause() + `
		ORDER BY timestamp DESC, id` + b.pageClause(filter.Page)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		log := &models.AuditLog{}
		var actorID, resourceID uuid.NullUUID
		var details []byte
		var ip, ua, requestID sql.NullString
		err := rows.Scan(
			&log.ID,
			&actorID,
			&log.Action,
			&log.ResourceType,
			&resourceID,
			&details,
			&ip,
			&ua,
			&requestID,
			&log.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.ActorID = uuidPtr(actorID)
		log.ResourceID = uuidPtr(resourceID)
		if len(details) > 0 {
			log.Details = json.RawMessage(details)
		}
		log.IPAddress = ip.String
		log.UserAgent = ua.String
		log.RequestID = requestID.String
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}
