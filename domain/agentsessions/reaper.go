package agentsessions

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	corev1 "k8s.io/api/core/v1"

	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/domain/users"
	"github.com/forgehub/platform/internal/storage"
	"github.com/forgehub/platform/pkg/logger"
)

// Reaper watches agent pods to completion: on a terminal phase (or the
// pod's disappearance after a client-initiated stop) it captures full
// logs, records the final token cost, and tears down the ephemeral
// identity. Live stdout tailing into the ProgressHub is done by
// Service.tailProgress, not here.
// Every step here is idempotent and tolerates the pod already being gone.
type Reaper struct {
	repo    *Repository
	kube    *KubeClient
	hub     *ProgressHub
	storage *storage.Service
	users   *users.Service
	perms   *permissions.Service
	log     *slog.Logger
}

func NewReaper(repo *Repository, kube *KubeClient, hub *ProgressHub, storageSvc *storage.Service, usersSvc *users.Service, permsSvc *permissions.Service, log *slog.Logger) *Reaper {
	return &Reaper{
		repo:    repo,
		kube:    kube,
		hub:     hub,
		storage: storageSvc,
		users:   usersSvc,
		perms:   permsSvc,
		log:     log.With(logger.Scope("agentsessions.reaper")),
	}
}

// Sweep is the periodic task: it examines every non-terminal session and
// finalizes the ones whose pod has reached a terminal phase or vanished.
func (r *Reaper) Sweep(ctx context.Context) error {
	sessions, err := r.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if session.PodName == nil {
			continue
		}
		if err := r.reapOne(ctx, session); err != nil {
			r.log.Warn("failed to reap session", logger.Error(err), slog.String("sessionID", session.ID))
		}
	}
	return nil
}

func (r *Reaper) reapOne(ctx context.Context, session *AgentSession) error {
	podName := *session.PodName

	phase, ok, err := r.kube.PodPhase(ctx, podName)
	if err != nil {
		return err
	}
	if ok && phase != corev1.PodSucceeded && phase != corev1.PodFailed {
		return nil
	}

	finalStatus := StatusCompleted
	if ok && phase == corev1.PodFailed {
		finalStatus = StatusFailed
	}

	costTokens := r.captureLogs(ctx, session.ID, podName)

	if err := r.repo.Finish(ctx, session.ID, finalStatus, costTokens); err != nil {
		return err
	}

	if session.AgentUserID != nil {
		if err := r.users.Deactivate(ctx, *session.AgentUserID); err != nil {
			r.log.Warn("failed to deactivate agent identity", logger.Error(err), slog.String("sessionID", session.ID))
		}
		r.perms.InvalidateUser(*session.AgentUserID)
	}

	return r.kube.DeletePod(ctx, podName)
}

// captureLogs tails the pod's stdout into object storage and, if the
// final line is a `result` line with a usable token count, returns it.
// Any failure here is logged and swallowed: missing logs never block the
// session from being finalized.
func (r *Reaper) captureLogs(ctx context.Context, sessionID, podName string) *int64 {
	stream, err := r.kube.PodLogs(ctx, podName, "claude")
	if err != nil {
		r.log.Warn("failed to open pod logs", logger.Error(err), slog.String("sessionID", sessionID))
		return nil
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		r.log.Warn("failed to read pod logs", logger.Error(err), slog.String("sessionID", sessionID))
		return nil
	}

	if r.storage.Enabled() {
		key := "logs/sessions/" + sessionID + ".log"
		if _, err := r.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), storage.UploadOptions{ContentType: "text/plain"}); err != nil {
			r.log.Warn("failed to upload session logs", logger.Error(err), slog.String("sessionID", sessionID))
		}
	}

	return lastResultTokens(data)
}

// lastResultTokens scans logged stdout backwards for the final `result`
// line and extracts usage.total_tokens from it.
func lastResultTokens(data []byte) *int64 {
	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if tokens, ok := finalUsageTokens(lines[i]); ok {
			return &tokens
		}
	}
	return nil
}
