package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// queryBuilder accumulates WHERE conditions and positional arguments
type queryBuilder struct {
	conds []string
	args  []interface{}
}

// arg registers v and returns its placeholder
func (b *queryBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *queryBuilder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func (b *queryBuilder) pageClause(page repositories.Page) string {
	var sb strings.Builder
	if page.Limit > 0 {
		sb.WriteString(" LIMIT " + b.arg(page.Limit))
	}
	if page.Offset > 0 {
		sb.WriteString(" OFFSET " + b.arg(page.Offset))
	}
	return sb.String()
}

// scopeFilter describes how one table is restricted per role.
// Each template receives the viewer placeholder through %[1]s.
type scopeFilter struct {
	professor string
	student   string
}

// apply adds the visibility predicate of scope to b. Unknown roles see nothing.
func (f scopeFilter) apply(b *queryBuilder, scope repositories.Scope) {
	if scope.Unrestricted {
		return
	}
	var tmpl string
	switch scope.Role {
	case models.RoleProfessor:
		tmpl = f.professor
	case models.RoleStudent:
		tmpl = f.student
	}
	if tmpl == "" || scope.ViewerID == uuid.Nil {
		b.where("FALSE")
		return
	}
	b.where(fmt.Sprintf(tmpl, b.arg(scope.ViewerID)))
}

// Visibility predicates, pushed into every scoped read.
var (
	courseScope = scopeFilter{
		professor: "c.teacher_id = %[1]s",
		student:   "EXISTS (SELECT 1 FROM course_students cs WHERE cs.course_id = c.id AND cs.student_id = %[1]s)",
	}
	eventScope = scopeFilter{
		professor: "(e.owner_id = %[1]s OR e.course_id IN (SELECT id FROM courses WHERE teacher_id = %[1]s))",
		student:   "(e.owner_id = %[1]s OR e.course_id IN (SELECT course_id FROM course_students WHERE student_id = %[1]s))",
	}
	resourceScope = scopeFilter{
		professor: "(r.uploaded_by = %[1]s OR r.course_id IN (SELECT id FROM courses WHERE teacher_id = %[1]s))",
		student:   "r.course_id IN (SELECT course_id FROM course_students WHERE student_id = %[1]s)",
	}
	notificationScope = scopeFilter{
		professor: "n.recipient_id = %[1]s",
		student:   "n.recipient_id = %[1]s",
	}
)

func nullUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// uuidStrings converts ids for use with pq.Array
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// rowsAffected returns the affected row count or a wrapped error
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
