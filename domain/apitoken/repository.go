package apitoken

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles data access for API tokens.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new API token repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("apitoken.repo"))}
}

// Create inserts a new token row.
func (r *Repository) Create(ctx context.Context, token *ApiToken) error {
	_, err := r.db.NewInsert().Model(token).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create api token", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// ListByUser returns every token issued to a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]ApiToken, error) {
	var tokens []ApiToken
	err := r.db.NewSelect().
		Model(&tokens).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list api tokens", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return tokens, nil
}

// GetByID returns a single token owned by a user.
func (r *Repository) GetByID(ctx context.Context, id, userID string) (*ApiToken, error) {
	var token ApiToken
	err := r.db.NewSelect().
		Model(&token).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get api token", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &token, nil
}
