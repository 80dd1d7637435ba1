package notifications

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles database operations for notifications.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new notifications repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("notifications.repo")),
	}
}

// Create inserts a new notification row.
func (r *Repository) Create(ctx context.Context, n *Notification) error {
	_, err := r.db.NewInsert().Model(n).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create notification", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// GetByID fetches a notification scoped to its owning user.
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*Notification, error) {
	n := new(Notification)
	err := r.db.NewSelect().Model(n).
		Where("id = ? AND user_id = ?", id, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get notification", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return n, nil
}

// List returns a user's notifications, most recent first. When
// unreadOnly is true, only rows with status pending/sent are returned.
func (r *Repository) List(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	var rows []*Notification
	q := r.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("status IN (?)", bun.In([]Status{StatusPending, StatusSent}))
	}
	err := q.OrderExpr("created_at DESC").Scan(ctx)
	if err != nil {
		r.log.Error("failed to list notifications", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// MarkRead sets status=read for a single notification owned by userID.
func (r *Repository) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.db.NewUpdate().
		Model((*Notification)(nil)).
		Set("status = ?", StatusRead).
		Where("id = ? AND user_id = ?", id, userID).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to mark notification read", logger.Error(err))
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

// MarkAllRead sets status=read for every unread notification owned by
// userID, returning the number of rows updated.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*Notification)(nil)).
		Set("status = ?", StatusRead).
		Where("user_id = ?", userID).
		Where("status IN (?)", bun.In([]Status{StatusPending, StatusSent})).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to mark all notifications read", logger.Error(err))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}
