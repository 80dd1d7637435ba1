package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/uptrace/bun"

	"github.com/forgehub/platform/internal/jobs"
	"github.com/forgehub/platform/pkg/logger"
)

const deliveryTimeout = 10 * time.Second

var (
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Total webhook delivery attempts by outcome",
	}, []string{"outcome"})

	deliveriesEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_deliveries_enqueued_total",
		Help: "Webhook deliveries queued for async dispatch",
	})
)

// Dispatcher fans domain events out to matching project webhooks by
// persisting one pending core.webhook_deliveries row per match. Enqueue
// never calls the destination itself; a Worker drains the queue.
type Dispatcher struct {
	repo *Repository
	log  *slog.Logger
}

func NewDispatcher(repo *Repository, log *slog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, log: log.With(logger.Scope("webhooks.dispatcher"))}
}

// Enqueue looks up active webhooks in projectID subscribed to event and
// records a pending delivery for each. The caller's request is not blocked
// on delivery outcome.
func (d *Dispatcher) Enqueue(ctx context.Context, projectID, event string, data any) {
	hooks, err := d.repo.ListActiveForEvent(context.WithoutCancel(ctx), projectID, event)
	if err != nil {
		d.log.Error("failed to look up webhooks for event", logger.Error(err), slog.String("event", event))
		return
	}
	if len(hooks) == 0 {
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		d.log.Error("failed to marshal webhook payload", logger.Error(err))
		return
	}
	envelope, err := json.Marshal(Envelope{
		Event:     event,
		ProjectID: projectID,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
	if err != nil {
		d.log.Error("failed to marshal webhook envelope", logger.Error(err))
		return
	}

	for _, hook := range hooks {
		delivery := &Delivery{
			WebhookID: hook.ID,
			Event:     event,
			Payload:   envelope,
			Status:    DeliveryPending,
		}
		if err := d.repo.CreateDelivery(context.WithoutCancel(ctx), delivery); err != nil {
			d.log.Error("failed to enqueue webhook delivery", logger.Error(err), slog.String("webhook_id", hook.ID))
			continue
		}
		deliveriesEnqueued.Inc()
	}
}

// Worker drains pending webhook_deliveries using the shared polling queue,
// attempting each delivery over HTTP and retrying failures with backoff.
const maxDeliveryAttempts = 8

type Worker struct {
	repo   *Repository
	queue  *jobs.Queue
	worker *jobs.Worker
	client *http.Client
	log    *slog.Logger
}

func NewWorker(repo *Repository, db *bun.DB, log *slog.Logger) *Worker {
	cfg := jobs.DefaultQueueConfig("core.webhook_deliveries", "webhook_id")
	cfg.MaxAttempts = maxDeliveryAttempts
	cfg.BaseRetryDelaySec = 30
	cfg.MaxRetryDelaySec = 1800
	cfg.BatchSize = 20

	w := &Worker{
		repo:   repo,
		queue:  jobs.NewQueue(db, cfg, log),
		client: &http.Client{Timeout: deliveryTimeout},
		log:    log.With(logger.Scope("webhooks.worker")),
	}
	w.worker = jobs.NewWorker(jobs.WorkerConfig{
		Name:                  "webhook-deliveries",
		PollInterval:          2 * time.Second,
		BatchSize:             20,
		StaleThresholdMinutes: 10,
		RecoverStaleOnStart:   true,
	}, log, w.processBatch)
	return w
}

func (w *Worker) Start(ctx context.Context) error {
	if _, err := w.queue.RecoverStaleJobs(ctx, 10); err != nil {
		w.log.Warn("failed to recover stale webhook deliveries", logger.Error(err))
	}
	return w.worker.Start(ctx)
}

func (w *Worker) Stop(ctx context.Context) error {
	return w.worker.Stop(ctx)
}

func (w *Worker) processBatch(ctx context.Context) error {
	ids, err := w.queue.Dequeue(ctx, 0)
	if err != nil {
		return fmt.Errorf("dequeue webhook deliveries: %w", err)
	}
	for _, id := range ids {
		w.attempt(ctx, id)
	}
	return nil
}

func (w *Worker) attempt(ctx context.Context, id string) {
	delivery, hook, err := w.repo.GetDeliveryWithWebhook(ctx, id)
	if err != nil || delivery == nil || hook == nil {
		if err != nil {
			w.log.Error("failed to load claimed webhook delivery", logger.Error(err), slog.String("delivery_id", id))
		}
		return
	}

	status, attemptErr := w.deliver(ctx, hook, delivery.Payload)
	if attemptErr == nil && status == DeliveryDelivered {
		if err := w.repo.MarkDelivered(ctx, id); err != nil {
			w.log.Error("failed to mark webhook delivery delivered", logger.Error(err))
		}
		deliveriesTotal.WithLabelValues("delivered").Inc()
		return
	}

	attempt := delivery.AttemptCount + 1
	msg := attemptErr.Error()
	if attempt >= maxDeliveryAttempts {
		if err := w.repo.MarkDead(ctx, id, msg); err != nil {
			w.log.Error("failed to mark webhook delivery dead", logger.Error(err))
		}
		w.log.Warn("webhook delivery permanently failed", slog.String("delivery_id", id), slog.Int("attempts", attempt))
		deliveriesTotal.WithLabelValues("dead").Inc()
		return
	}

	delay := backoff(attempt, 30*time.Second, 30*time.Minute)
	if err := w.repo.ScheduleRetry(ctx, id, msg, delay); err != nil {
		w.log.Error("failed to reschedule webhook delivery", logger.Error(err))
	}
	deliveriesTotal.WithLabelValues("retry").Inc()
}

func backoff(attempt int, base, max time.Duration) time.Duration {
	d := base * time.Duration(attempt*attempt)
	if d > max {
		return max
	}
	return d
}

func (w *Worker) deliver(ctx context.Context, hook *Webhook, body []byte) (DeliveryStatus, error) {
	u, err := validateURL(ctx, hook.URL)
	if err != nil {
		return DeliveryFailed, fmt.Errorf("url revalidation failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return DeliveryFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	if hook.Secret != nil && *hook.Secret != "" {
		req.Header.Set("X-Platform-Signature", "sha256="+signBody(*hook.Secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return DeliveryFailed, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DeliveryFailed, fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return DeliveryDelivered, nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
