package deployments

import (
	"context"
	"log/slog"

	"github.com/forgehub/platform/domain/projects"
	"github.com/forgehub/platform/domain/webhooks"
	"github.com/forgehub/platform/internal/config"
	"github.com/forgehub/platform/pkg/logger"
)

// Reconciler is the periodic controller that drives each deployment's
// current_status toward its desired_status: apply/update the cluster
// object, poll readiness, and handle stopped/rollback intents.
type Reconciler struct {
	repo     *Repository
	projects *projects.Repository
	kube     *KubeClient
	webhooks *webhooks.Service
	cfg      *config.Config
	log      *slog.Logger
}

func NewReconciler(repo *Repository, projectsRepo *projects.Repository, kube *KubeClient, webhooksSvc *webhooks.Service, cfg *config.Config, log *slog.Logger) *Reconciler {
	return &Reconciler{repo: repo, projects: projectsRepo, kube: kube, webhooks: webhooksSvc, cfg: cfg, log: log.With(logger.Scope("deployments.reconciler"))}
}

// Tick is the scheduler entrypoint: reconcile every deployment whose
// state hasn't converged.
func (r *Reconciler) Tick(ctx context.Context) error {
	rows, err := r.repo.ListNeedingReconcile(ctx)
	if err != nil {
		return err
	}
	for _, d := range rows {
		if err := r.reconcileOne(ctx, d); err != nil {
			r.log.Error("failed to reconcile deployment", slog.String("deployment_id", d.ID), logger.Error(err))
		}
	}
	return nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, d *Deployment) error {
	switch d.DesiredStatus {
	case DesiredStopped:
		return r.reconcileStopped(ctx, d)
	case DesiredRollback:
		return r.reconcileRollback(ctx, d)
	default:
		return r.reconcileActive(ctx, d)
	}
}

func (r *Reconciler) clusterName(ctx context.Context, d *Deployment) (string, error) {
	project, err := r.projects.GetByID(ctx, d.ProjectID)
	if err != nil {
		return "", err
	}
	name := d.ProjectID
	if project != nil {
		name = project.Name
	}
	return ClusterName(name, d.Environment), nil
}

func (r *Reconciler) reconcileActive(ctx context.Context, d *Deployment) error {
	name, err := r.clusterName(ctx, d)
	if err != nil {
		return err
	}

	if d.CurrentStatus == CurrentPending {
		if err := r.kube.ApplyDeployment(ctx, name, d.ImageRef, 1); err != nil {
			return r.transition(ctx, d, CurrentFailed, ActionSync, "apply failed: "+err.Error())
		}
		return r.transition(ctx, d, CurrentSyncing, ActionSync, "applied "+d.ImageRef)
	}

	if d.CurrentStatus != CurrentSyncing {
		return nil
	}

	ready, ok, err := r.kube.RolloutReady(ctx, name)
	if err != nil {
		return r.transition(ctx, d, CurrentFailed, ActionSync, "readiness check failed: "+err.Error())
	}
	if !ok {
		// Deployment object not found yet; treat as still pending per the
		// open-question guidance for partial/incomplete cluster state.
		return nil
	}
	if ready {
		return r.transition(ctx, d, CurrentHealthy, ActionSync, "all replicas ready")
	}
	// Not ready yet within this tick; stay in syncing and retry next tick.
	// A real rollout-deadline timeout would require tracking the sync
	// start time, which core.deployments doesn't carry a column for.
	return nil
}

func (r *Reconciler) reconcileStopped(ctx context.Context, d *Deployment) error {
	name, err := r.clusterName(ctx, d)
	if err != nil {
		return err
	}
	if err := r.kube.ScaleToZero(ctx, name); err != nil {
		return r.transition(ctx, d, CurrentFailed, ActionStop, "scale to zero failed: "+err.Error())
	}
	return r.transition(ctx, d, CurrentHealthy, ActionStop, "scaled to zero")
}

func (r *Reconciler) reconcileRollback(ctx context.Context, d *Deployment) error {
	imageRef, found, err := r.repo.LatestDeployableImage(ctx, d.ID, d.ImageRef)
	if err != nil {
		return err
	}
	if !found {
		return r.transition(ctx, d, CurrentFailed, ActionRollback, "no prior deploy image to roll back to")
	}
	if err := r.repo.SetImageRef(ctx, d.ID, imageRef); err != nil {
		return err
	}
	if err := r.repo.SetDesiredStatus(ctx, d.ID, DesiredActive); err != nil {
		return err
	}
	return r.appendHistory(ctx, d.ID, ActionRollback, string(d.CurrentStatus), string(CurrentPending), "rolled back to "+imageRef)
}

func (r *Reconciler) transition(ctx context.Context, d *Deployment, to CurrentStatus, action, detail string) error {
	from := string(d.CurrentStatus)
	if err := r.repo.SetCurrentStatus(ctx, d.ID, to); err != nil {
		return err
	}
	if err := r.appendHistory(ctx, d.ID, action, from, string(to), detail); err != nil {
		return err
	}
	r.emitDeployEvent(ctx, d, action, to, detail)
	return nil
}

// emitDeployEvent notifies project webhooks of a deploy-in-progress
// transition. Stop/rollback actions don't reach here with a matching
// event name and are silently skipped; only the sync state machine
// (apply -> syncing -> healthy|failed) corresponds to a deploy lifecycle.
func (r *Reconciler) emitDeployEvent(ctx context.Context, d *Deployment, action string, to CurrentStatus, detail string) {
	if action != ActionSync {
		return
	}
	var event string
	switch to {
	case CurrentSyncing:
		event = "deploy.started"
	case CurrentHealthy:
		event = "deploy.succeeded"
	case CurrentFailed:
		event = "deploy.failed"
	default:
		return
	}
	r.webhooks.Emit(ctx, d.ProjectID, event, map[string]any{
		"deploymentId": d.ID,
		"environment":  d.Environment,
		"imageRef":     d.ImageRef,
		"detail":       detail,
	})
}

func (r *Reconciler) appendHistory(ctx context.Context, deploymentID, action, from, to, detail string) error {
	h := &DeploymentHistory{
		DeploymentID: deploymentID,
		Action:       action,
		ToStatus:     to,
		Detail:       detail,
	}
	if from != "" {
		h.FromStatus = &from
	}
	return r.repo.AppendHistory(ctx, h)
}
