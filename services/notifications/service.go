// Package notifications implements notification fan-out and the recipient inbox.
package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/audit"
	"github.com/unistudious/backend/services/authz"
	"go.uber.org/zap"
)

// SendInput describes a notification to fan out.
// Recipients are the union of RecipientIDs and the students of CourseID.
type SendInput struct {
	Title        string
	Message      string
	Type         models.NotificationType
	RecipientIDs []uuid.UUID
	CourseID     *uuid.UUID
}

// NotificationService handles notification operations
type NotificationService struct {
	txMgr         repositories.TransactionManager
	notifications repositories.NotificationRepository
	courses       repositories.CourseRepository
	users         repositories.UserRepository
	guard         *authz.Guard
	audit         audit.Recorder
	logger        *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(txMgr repositories.TransactionManager, repos *repositories.Repositories, recorder audit.Recorder, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		txMgr:         txMgr,
		notifications: repos.Notifications,
		courses:       repos.Courses,
		users:         repos.Users,
		guard:         authz.NewGuard(),
		audit:         recorder,
		logger:        logger,
	}
}

// Send creates one notification per distinct recipient, all or nothing
func (s *NotificationService) Send(ctx context.Context, p models.Principal, in SendInput) ([]*models.Notification, error) {
	if err := s.guard.CheckRole(p, authz.ResourceNotification, authz.OpCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, services.NewValidationError("title", "title is required")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, services.NewValidationError("message", "message is required")
	}
	if in.Type == "" {
		in.Type = models.NotificationTypeInfo
	}
	if !in.Type.Valid() {
		return nil, services.NewValidationError("type", "type must be one of info, course, event, resource, system")
	}

	explicit := services.UniqueIDs(in.RecipientIDs)
	if err := s.checkRecipientsExist(ctx, explicit); err != nil {
		return nil, err
	}

	recipients := explicit
	var courseID *uuid.UUID
	if in.CourseID != nil {
		course, err := s.courses.GetByID(ctx, *in.CourseID, repositories.Scope{Unrestricted: true})
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.NewValidationError("course_id", "course does not exist")
			}
			return nil, services.WrapInternal("failed to load course", err)
		}
		if err := s.guard.AttachToCourse(p, authz.ResourceNotification, course); err != nil {
			return nil, err
		}
		id := course.ID
		courseID = &id
		recipients = services.UniqueIDs(append(append([]uuid.UUID{}, explicit...), course.StudentIDs...))
	}
	if len(recipients) == 0 {
		return nil, services.ErrNoRecipients
	}

	batch := models.FanOut(strings.TrimSpace(in.Title), in.Message, in.Type, &p.ID, courseID, recipients)
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		return s.notifications.CreateBatch(ctx, batch)
	})
	if err != nil {
		return nil, services.WrapInternal("failed to send notification", err)
	}

	s.logger.Info("notification sent",
		zap.String("sender_id", p.ID.String()),
		zap.Int("recipients", len(batch)))
	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionNotificationSent, string(authz.ResourceNotification)).
		WithActor(p.ID).
		WithDetails(map[string]interface{}{"title": in.Title, "recipients": len(batch), "course_id": courseID}))

	return batch, nil
}

func (s *NotificationService) checkRecipientsExist(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	roles, err := s.users.Roles(ctx, ids)
	if err != nil {
		return services.WrapInternal("failed to load recipients", err)
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := roles[id]; !ok {
			unknown = append(unknown, id.String())
		}
	}
	if len(unknown) > 0 {
		return services.NewValidationError("recipient_ids", "unknown recipients").WithDetail("ids", unknown)
	}
	return nil
}

// List returns the principal's inbox, or every notification for admins
func (s *NotificationService) List(ctx context.Context, p models.Principal, filter repositories.NotificationFilter) ([]*models.Notification, error) {
	filter.Page = services.NormalizePage(filter.Page)
	notifications, err := s.notifications.List(ctx, authz.ScopeFor(p), filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list notifications", err)
	}
	return notifications, nil
}

// Get returns a notification visible to the principal
func (s *NotificationService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id, authz.ScopeFor(p))
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrNotificationNotFound, "failed to get notification")
	}
	return n, nil
}

func (s *NotificationService) load(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id, repositories.Scope{Unrestricted: true})
	if err != nil {
		return nil, services.NotFoundOr(err, services.ErrNotificationNotFound, "failed to load notification")
	}
	return n, nil
}

// MarkRead flags a notification read. Only its recipient may do so; repeating it is harmless.
func (s *NotificationService) MarkRead(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Notification, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.NotificationMarkRead(p, n); err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}

	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return nil, services.NotFoundOr(err, services.ErrNotificationNotFound, "failed to mark notification read")
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead flags the principal's whole inbox read and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, p models.Principal) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, p.ID)
	if err != nil {
		return 0, services.WrapInternal("failed to mark notifications read", err)
	}
	return n, nil
}

// Delete removes a notification. The sender, the recipient and admins may delete it.
func (s *NotificationService) Delete(ctx context.Context, p models.Principal, id uuid.UUID) error {
	n, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.NotificationDelete(p, n); err != nil {
		return err
	}

	if err := s.notifications.Delete(ctx, id); err != nil {
		return services.NotFoundOr(err, services.ErrNotificationNotFound, "failed to delete notification")
	}

	s.audit.Record(ctx, models.NewAuditLog(models.AuditActionNotificationDeleted, string(authz.ResourceNotification)).
		WithActor(p.ID).
		WithResource(id))

	return nil
}
