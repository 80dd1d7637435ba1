package deployments

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/forgehub/platform/domain/scheduler"
	"github.com/forgehub/platform/internal/config"
)

// Module provides the deployment-reconciler domain: reconcile loop,
// preview TTL sweeper, and the cluster Deployment apply/scale client.
var Module = fx.Module("deployments",
	fx.Provide(
		NewRepository,
		NewKubeClientFromConfig,
		NewReconciler,
		NewSweeper,
		NewService,
		NewHandler,
	),
	fx.Invoke(
		RegisterRoutes,
		RegisterReconcilerLifecycle,
	),
)

// NewKubeClientFromConfig adapts config.Config to the (kubeconfig,
// namespace, logger) constructor NewKubeClient expects.
func NewKubeClientFromConfig(cfg *config.Config, log *slog.Logger) *KubeClient {
	return NewKubeClient(cfg.Cluster.Kubeconfig, cfg.Cluster.DeploymentNS, log)
}

// RegisterReconcilerLifecycle schedules the reconciler tick and the
// preview sweeper on the shared scheduler, rather than each running its
// own ticker.
func RegisterReconcilerLifecycle(s *scheduler.Scheduler, reconciler *Reconciler, sweeper *Sweeper, cfg *config.Config, log *slog.Logger) error {
	if err := s.AddIntervalTask("deployment_reconciler", cfg.Cluster.ReconcileTick, reconciler.Tick); err != nil {
		return err
	}
	return s.AddIntervalTask("preview_sweeper", cfg.Cluster.ReconcileTick*6, sweeper.Sweep)
}
