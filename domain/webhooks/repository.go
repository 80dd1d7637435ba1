package webhooks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles database operations for webhooks and their deliveries.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("webhooks.repo"))}
}

func (r *Repository) Create(ctx context.Context, w *Webhook) error {
	_, err := r.db.NewInsert().Model(w).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create webhook", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Webhook, error) {
	w := new(Webhook)
	err := r.db.NewSelect().Model(w).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get webhook by id", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return w, nil
}

func (r *Repository) ListByProject(ctx context.Context, projectID string) ([]*Webhook, error) {
	var rows []*Webhook
	err := r.db.NewSelect().Model(&rows).
		Where("project_id = ?", projectID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list webhooks", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// ListActiveForEvent returns active webhooks in projectID subscribed to event.
// Filtering on subscription is re-checked in-process via Webhook.Matches
// since array-contains queries vary across bun dialects.
func (r *Repository) ListActiveForEvent(ctx context.Context, projectID, event string) ([]*Webhook, error) {
	var rows []*Webhook
	err := r.db.NewSelect().Model(&rows).
		Where("project_id = ?", projectID).
		Where("is_active = true").
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list active webhooks", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	matching := make([]*Webhook, 0, len(rows))
	for _, w := range rows {
		if w.Matches(event) {
			matching = append(matching, w)
		}
	}
	return matching, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*Webhook)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		r.log.Error("failed to delete webhook", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if rows == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateDelivery(ctx context.Context, d *Delivery) error {
	_, err := r.db.NewInsert().Model(d).Exec(ctx)
	if err != nil {
		r.log.Error("failed to record webhook delivery", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// GetDeliveryWithWebhook loads a claimed delivery row along with the webhook
// it targets, so the worker has everything it needs to attempt the send.
func (r *Repository) GetDeliveryWithWebhook(ctx context.Context, id string) (*Delivery, *Webhook, error) {
	d := new(Delivery)
	if err := r.db.NewSelect().Model(d).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		r.log.Error("failed to load webhook delivery", logger.Error(err))
		return nil, nil, apperror.ErrDatabase.WithInternal(err)
	}
	w, err := r.GetByID(ctx, d.WebhookID)
	if err != nil {
		return nil, nil, err
	}
	return d, w, nil
}

// MarkDelivered records a successful attempt as the delivery's terminal state.
func (r *Repository) MarkDelivered(ctx context.Context, id string) error {
	_, err := r.db.NewUpdate().
		Model((*Delivery)(nil)).
		Set("status = ?", DeliveryDelivered).
		Set("attempt_count = attempt_count + 1").
		Set("completed_at = now()").
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to mark webhook delivery delivered", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// ScheduleRetry records a failed attempt and reschedules the delivery for
// another try after delay.
func (r *Repository) ScheduleRetry(ctx context.Context, id string, lastError string, delay time.Duration) error {
	_, err := r.db.NewUpdate().
		Model((*Delivery)(nil)).
		Set("status = ?", DeliveryPending).
		Set("attempt_count = attempt_count + 1").
		Set("last_error = ?", lastError).
		Set("scheduled_at = now() + ?::interval", fmt.Sprintf("%d seconds", int(delay.Seconds()))).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to reschedule webhook delivery", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// MarkDead records a failed attempt as permanent after exhausting retries.
func (r *Repository) MarkDead(ctx context.Context, id string, lastError string) error {
	_, err := r.db.NewUpdate().
		Model((*Delivery)(nil)).
		Set("status = ?", DeliveryFailed).
		Set("attempt_count = attempt_count + 1").
		Set("last_error = ?", lastError).
		Set("completed_at = now()").
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to mark webhook delivery dead", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

func (r *Repository) ListDeliveries(ctx context.Context, webhookID string, limit int) ([]*Delivery, error) {
	var rows []*Delivery
	err := r.db.NewSelect().Model(&rows).
		Where("webhook_id = ?", webhookID).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list webhook deliveries", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}
