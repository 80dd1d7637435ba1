package agentsessions

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/forgehub/platform/domain/apitoken"
	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/domain/projects"
	"github.com/forgehub/platform/domain/users"
	"github.com/forgehub/platform/internal/config"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Service implements agent-session creation, listing, and client-initiated
// stop. Reaping (pod-phase watch, log capture, identity teardown) lives in
// Reaper; Service only ever takes a session from pending to running (or
// to failed when its pod cannot be scheduled), and Stop deletes the
// session's pod for the reaper to act on.
type Service struct {
	repo      *Repository
	kube      *KubeClient
	hub       *ProgressHub
	users     *users.Service
	perms     *permissions.Service
	apitokens *apitoken.Service
	projects  *projects.Service
	agentCfg  config.Agent
	cluster   config.Cluster
	log       *slog.Logger
}

func NewService(
	repo *Repository,
	kube *KubeClient,
	hub *ProgressHub,
	usersSvc *users.Service,
	permsSvc *permissions.Service,
	apitokensSvc *apitoken.Service,
	projectsSvc *projects.Service,
	cfg *config.Config,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		kube:      kube,
		hub:       hub,
		users:     usersSvc,
		perms:     permsSvc,
		apitokens: apitokensSvc,
		projects:  projectsSvc,
		agentCfg:  cfg.Agent,
		cluster:   cfg.Cluster,
		log:       log.With(logger.Scope("agentsessions.svc")),
	}
}

// defaultScopes are the permissions minted onto an agent's ephemeral
// identity when the caller does not request a narrower set.
var defaultScopes = []string{"project:read", "deploy:read", "deploy:write"}

// Create authorizes the spawn, mints an ephemeral identity scoped to the
// session, schedules the agent Pod, and persists the session as running.
func (s *Service) Create(ctx context.Context, issuerID, projectID, prompt, provider string, scopes []string, branch *string) (*AgentSession, error) {
	if err := s.perms.Require(ctx, issuerID, "agent:spawn", &projectID, false); err != nil {
		return nil, err
	}
	if prompt == "" {
		return nil, apperror.ErrBadRequest.WithMessage("prompt is required")
	}
	if provider == "" {
		provider = "anthropic"
	}
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperror.ErrProjectNotFound
	}

	sessionID := uuid.NewString()
	effectiveBranch := DefaultBranch(sessionID)
	if branch != nil && *branch != "" {
		effectiveBranch = *branch
	}

	identity, err := mintIdentity(ctx, s.users, s.perms, s.apitokens, projectID, scopes, s.agentCfg.TokenTTL, sessionID)
	if err != nil {
		return nil, err
	}

	pod := buildPodSpec(s.agentCfg, s.cluster, PodSpecInput{
		SessionID:     sessionID,
		ProjectID:     projectID,
		RepoPath:      project.RepoPath,
		Branch:        effectiveBranch,
		Prompt:        prompt,
		PlatformToken: identity.RawToken,
	})

	session := &AgentSession{
		ID:             sessionID,
		ProjectID:      projectID,
		UserID:         issuerID,
		AgentUserID:    &identity.User.ID,
		Prompt:         prompt,
		Provider:       provider,
		ProviderConfig: map[string]any{},
		Branch:         &effectiveBranch,
		Status:         StatusPending,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.kube.ApplyPod(ctx, pod); err != nil {
		s.log.Error("failed to schedule agent pod", logger.Error(err), slog.String("sessionID", sessionID))
		_ = s.repo.Finish(ctx, sessionID, StatusFailed, nil)
		return nil, apperror.ErrUpstream.WithInternal(err)
	}

	podName := pod.Name
	if err := s.repo.SetPodName(ctx, sessionID, podName); err != nil {
		return nil, err
	}
	session.PodName = &podName
	session.Status = StatusRunning

	go s.tailProgress(sessionID, podName)

	return session, nil
}

// tailProgress follows the agent container's stdout for the lifetime of
// the pod, publishing each parsed line to the progress hub. Runs
// detached from the request context since the pod outlives the HTTP
// request that spawned it; it exits on its own once the container
// stops producing output (completion, failure, or deletion by Stop/the
// reaper).
func (s *Service) tailProgress(sessionID, podName string) {
	stream, err := s.kube.StreamPodLogs(context.Background(), podName, "claude")
	if err != nil {
		s.log.Warn("failed to open live pod log stream", logger.Error(err), slog.String("sessionID", sessionID))
		return
	}
	defer stream.Close()
	ScanStdout(sessionID, stream, s.hub)
}

func (s *Service) GetByID(ctx context.Context, id string) (*AgentSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.ErrNotFound
	}
	return session, nil
}

func (s *Service) ListByProject(ctx context.Context, projectID string) ([]*AgentSession, error) {
	return s.repo.ListByProject(ctx, projectID)
}

// Stop authorizes and deletes the session's pod; the reaper observes the
// pod's disappearance (or terminal phase) on its next tick and finalizes
// the session. A pod that has vanished is recorded as completed; Stop
// itself writes no status, and no path records StatusStopped.
func (s *Service) Stop(ctx context.Context, issuerID, id string) error {
	session, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.perms.Require(ctx, issuerID, "agent:stop", &session.ProjectID, false); err != nil {
		return err
	}
	if session.PodName == nil {
		return nil
	}
	return s.kube.DeletePod(ctx, *session.PodName)
}

// Subscribe streams progress events for sessionID to the caller until
// the returned unsubscribe func is called.
func (s *Service) Subscribe(sessionID string) (<-chan ProgressEvent, func()) {
	return s.hub.Subscribe(sessionID)
}
