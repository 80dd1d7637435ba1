package sessions

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles database operations for auth sessions.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new sessions repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("sessions.repo"))}
}

// Create inserts a new session row.
func (r *Repository) Create(ctx context.Context, s *Session) error {
	_, err := r.db.NewInsert().Model(s).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create session", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// GetByHash looks a session up by its token hash, joined against the
// owning user so the middleware can reject inactive users in one query.
type SessionWithUser struct {
	Session
	UserIsActive bool `bun:"user_is_active"`
}

func (r *Repository) GetByHash(ctx context.Context, tokenHash string) (*SessionWithUser, error) {
	var result SessionWithUser
	err := r.db.NewSelect().
		TableExpr("core.auth_sessions AS ses").
		ColumnExpr("ses.*").
		ColumnExpr("usr.is_active AS user_is_active").
		Join("INNER JOIN core.users AS usr ON usr.id = ses.user_id").
		Where("ses.token_hash = ?", tokenHash).
		Where("ses.expires_at > ?", time.Now()).
		Scan(ctx, &result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to look up session", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &result, nil
}

// RevokeAllForUser deletes every session belonging to a user, used by
// Service.Logout.
func (r *Repository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.NewDelete().
		Model((*Session)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to revoke sessions", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}
