package notifications

import (
	"context"
	"log/slog"

	"github.com/forgehub/platform/domain/email"
	"github.com/forgehub/platform/domain/users"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Service handles business logic for notifications.
type Service struct {
	repo  *Repository
	users *users.Service
	jobs  *email.JobsService
	log   *slog.Logger
}

// NewService creates a new notifications service.
func NewService(repo *Repository, usersSvc *users.Service, jobs *email.JobsService, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		users: usersSvc,
		jobs:  jobs,
		log:   log.With(logger.Scope("notifications.svc")),
	}
}

// Create records a new notification. Delivery (e.g. the email channel)
// is swallowed locally on failure per the spec's side-effect
// propagation policy — a failed enqueue never surfaces to whatever
// triggered the notification, it just leaves the notification row as
// the only record of the attempt.
func (s *Service) Create(ctx context.Context, userID, notificationType, subject string, channel Channel) (*Notification, error) {
	if userID == "" || subject == "" {
		return nil, apperror.ErrBadRequest.WithMessage("userID and subject are required")
	}
	if channel == "" {
		channel = ChannelInApp
	}
	n := &Notification{
		UserID:           userID,
		NotificationType: notificationType,
		Subject:          subject,
		Channel:          channel,
		Status:           StatusPending,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if channel == ChannelEmail {
		s.enqueueEmail(ctx, n)
	}
	return n, nil
}

// enqueueEmail looks up the recipient's address and queues the
// delivery. Errors are logged, not returned — the notification row
// itself already persisted successfully.
func (s *Service) enqueueEmail(ctx context.Context, n *Notification) {
	u, err := s.users.GetByID(ctx, n.UserID)
	if err != nil || u == nil || u.Email == "" {
		s.log.Warn("cannot enqueue email notification: no address on file",
			slog.String("user_id", n.UserID), slog.String("notification_id", n.ID))
		return
	}
	sourceType := "notification"
	_, err = s.jobs.Enqueue(ctx, email.EnqueueOptions{
		NotificationID: &n.ID,
		TemplateName:   "notification_" + n.NotificationType,
		ToEmail:        u.Email,
		Subject:        n.Subject,
		TemplateData:   map[string]interface{}{"subject": n.Subject},
		SourceType:     &sourceType,
		SourceID:       &n.ID,
	})
	if err != nil {
		s.log.Error("failed to enqueue notification email", logger.Error(err),
			slog.String("notification_id", n.ID))
	}
}

// List returns a user's notifications.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	return s.repo.List(ctx, userID, unreadOnly)
}

// MarkRead marks one notification read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every unread notification read, returning the count.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
