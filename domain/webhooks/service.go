package webhooks

import (
	"context"
	"log/slog"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

type Service struct {
	repo       *Repository
	dispatcher *Dispatcher
	log        *slog.Logger
}

func NewService(repo *Repository, dispatcher *Dispatcher, log *slog.Logger) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, log: log.With(logger.Scope("webhooks.svc"))}
}

func (s *Service) Create(ctx context.Context, projectID, rawURL string, events []string, secret string) (*Webhook, error) {
	if len(events) == 0 {
		return nil, apperror.ErrBadRequest.WithMessage("at least one event is required")
	}
	if _, err := validateURL(ctx, rawURL); err != nil {
		return nil, err
	}

	w := &Webhook{ProjectID: projectID, URL: rawURL, Events: events, IsActive: true}
	if secret != "" {
		w.Secret = &secret
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) List(ctx context.Context, projectID string) ([]*Webhook, error) {
	return s.repo.ListByProject(ctx, projectID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Deliveries(ctx context.Context, webhookID string) ([]*Delivery, error) {
	return s.repo.ListDeliveries(ctx, webhookID, 100)
}

// Emit fires event for projectID to every matching, active webhook.
// Delivery happens asynchronously; Emit does not block on outcome.
func (s *Service) Emit(ctx context.Context, projectID, event string, data any) {
	s.dispatcher.Enqueue(ctx, projectID, event, data)
}
