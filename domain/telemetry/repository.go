package telemetry

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository persists normalized telemetry rows.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("telemetry.repo"))}
}

// InsertBatch bulk-inserts rows in a single statement. Empty batches are
// a no-op rather than an error — an OTLP export with no resource groups
// is valid.
func (r *Repository) InsertBatch(ctx context.Context, rows []*Row) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().Model(&rows).Exec(ctx)
	if err != nil {
		r.log.Error("failed to insert telemetry batch", logger.Error(err), slog.Int("count", len(rows)))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}
