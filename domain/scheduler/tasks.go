package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/logger"
)

// TelemetryRetentionTask prunes telemetry rows past the configured
// retention window so telemetry.rows doesn't grow unbounded under a
// busy OTLP ingest load.
type TelemetryRetentionTask struct {
	db     *bun.DB
	log    *slog.Logger
	window time.Duration
}

func NewTelemetryRetentionTask(db *bun.DB, log *slog.Logger, window time.Duration) *TelemetryRetentionTask {
	return &TelemetryRetentionTask{
		db:     db,
		log:    log.With(logger.Scope("scheduler.telemetry_retention")),
		window: window,
	}
}

// Run deletes telemetry rows older than the retention window.
func (t *TelemetryRetentionTask) Run(ctx context.Context) error {
	start := time.Now()
	t.log.Debug("pruning telemetry rows past retention window")

	cutoff := time.Now().Add(-t.window)
	result, err := t.db.ExecContext(ctx, `DELETE FROM telemetry.rows WHERE observed_at < ?`, cutoff)
	if err != nil {
		t.log.Error("failed to prune telemetry rows", slog.String("error", err.Error()))
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		t.log.Info("pruned telemetry rows",
			slog.Int64("count", rowsAffected),
			slog.Duration("duration", time.Since(start)))
	} else {
		t.log.Debug("no telemetry rows past retention window", slog.Duration("duration", time.Since(start)))
	}

	return nil
}

// WebhookDeliveryPruneTask removes terminal webhook deliveries
// (delivered/dropped) past the configured retention window, keeping
// core.webhook_deliveries bounded without losing recent history used
// by the deliveries-list endpoint.
type WebhookDeliveryPruneTask struct {
	db     *bun.DB
	log    *slog.Logger
	window time.Duration
}

func NewWebhookDeliveryPruneTask(db *bun.DB, log *slog.Logger, window time.Duration) *WebhookDeliveryPruneTask {
	return &WebhookDeliveryPruneTask{
		db:     db,
		log:    log.With(logger.Scope("scheduler.webhook_delivery_prune")),
		window: window,
	}
}

// Run deletes delivered/dropped deliveries older than the retention window.
func (t *WebhookDeliveryPruneTask) Run(ctx context.Context) error {
	start := time.Now()
	t.log.Debug("pruning terminal webhook deliveries")

	cutoff := time.Now().Add(-t.window)
	result, err := t.db.ExecContext(ctx, `
		DELETE FROM core.webhook_deliveries
		WHERE status IN ('delivered', 'dropped')
		AND created_at < ?
	`, cutoff)
	if err != nil {
		t.log.Error("failed to prune webhook deliveries", slog.String("error", err.Error()))
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		t.log.Info("pruned webhook deliveries",
			slog.Int64("count", rowsAffected),
			slog.Duration("duration", time.Since(start)))
	} else {
		t.log.Debug("no terminal webhook deliveries to prune", slog.Duration("duration", time.Since(start)))
	}

	return nil
}

// StaleJobCleanupTask marks stale email jobs (core.email_jobs) as failed
type StaleJobCleanupTask struct {
	db           *bun.DB
	log          *slog.Logger
	staleMinutes int
	mu           sync.RWMutex
}

// NewStaleJobCleanupTask creates a new stale job cleanup task
func NewStaleJobCleanupTask(db *bun.DB, log *slog.Logger, staleMinutes int) *StaleJobCleanupTask {
	if staleMinutes <= 0 {
		staleMinutes = 30
	}
	return &StaleJobCleanupTask{
		db:           db,
		log:          log.With(logger.Scope("scheduler.stale_job_cleanup")),
		staleMinutes: staleMinutes,
	}
}

// SetStaleMinutes updates the stale threshold at runtime.
func (t *StaleJobCleanupTask) SetStaleMinutes(minutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staleMinutes = minutes
}

// GetStaleMinutes returns the current stale threshold.
func (t *StaleJobCleanupTask) GetStaleMinutes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.staleMinutes
}

// Run marks email jobs stuck in 'processing' as failed. core.email_jobs
// has no started_at column (only created_at), so staleness is measured
// from enqueue time — a long-running retry backoff window can still
// legitimately leave a job 'pending' well past this threshold without
// being touched here.
func (t *StaleJobCleanupTask) Run(ctx context.Context) error {
	start := time.Now()
	t.log.Debug("cleaning up stale email jobs")

	t.mu.RLock()
	staleMinutes := t.staleMinutes
	t.mu.RUnlock()

	cutoff := time.Now().Add(-time.Duration(staleMinutes) * time.Minute)

	result, err := t.db.ExecContext(ctx, `
		UPDATE core.email_jobs
		SET status = 'failed',
			last_error = 'job marked as stale during cleanup'
		WHERE status = 'processing'
		AND created_at < ?
	`, cutoff)
	if err != nil {
		t.log.Warn("failed to clean up stale email jobs", slog.String("error", err.Error()))
		return err
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		t.log.Info("cleaned up stale email jobs",
			slog.Int64("count", count),
			slog.Duration("duration", time.Since(start)))
	} else {
		t.log.Debug("no stale email jobs", slog.Duration("duration", time.Since(start)))
	}

	return nil
}
