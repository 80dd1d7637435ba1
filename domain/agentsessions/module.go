package agentsessions

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/forgehub/platform/domain/scheduler"
	"github.com/forgehub/platform/internal/config"
)

// Module provides the agent-session domain: identity minting, pod
// scheduling, progress fan-out, and the reaper that tears sessions down.
var Module = fx.Module("agentsessions",
	fx.Provide(
		NewRepository,
		NewKubeClientFromConfig,
		NewProgressHub,
		NewService,
		NewHandler,
		NewReaper,
	),
	fx.Invoke(
		RegisterRoutes,
		RegisterReaperLifecycle,
	),
)

// NewKubeClientFromConfig adapts config.Config to the (kubeconfig,
// namespace, logger) constructor NewKubeClient expects.
func NewKubeClientFromConfig(cfg *config.Config, log *slog.Logger) *KubeClient {
	return NewKubeClient(cfg.Cluster.Kubeconfig, cfg.Cluster.AgentNS, log)
}

// RegisterReaperLifecycle schedules the reaper's sweep on the shared
// scheduler at the cluster's reconcile tick, rather than running its own
// ticker, so it starts and stops alongside every other controller.
func RegisterReaperLifecycle(s *scheduler.Scheduler, reaper *Reaper, cfg *config.Config, log *slog.Logger) error {
	return s.AddIntervalTask("agent_session_reaper", cfg.Cluster.ReconcileTick, reaper.Sweep)
}
