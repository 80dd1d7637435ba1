package deployments

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/forgehub/platform/pkg/logger"
)

// KubeClient wraps the subset of the cluster API the deployment
// reconciler needs: applying/scaling/deleting a Deployment object and
// reading its rollout status.
type KubeClient struct {
	client    *kubernetes.Clientset
	namespace string
	log       *slog.Logger
}

// NewKubeClient builds a clientset the same way agentsessions.KubeClient
// does: in-cluster first, kubeconfig fallback, degraded nil-client mode
// if neither is reachable.
func NewKubeClient(kubeconfigPath, namespace string, log *slog.Logger) *KubeClient {
	log = log.With(logger.Scope("deployments.kube"))

	cfg, err := rest.InClusterConfig()
	if err != nil {
		path := strings.TrimSpace(kubeconfigPath)
		if path == "" {
			path = strings.TrimSpace(os.Getenv("KUBECONFIG"))
		}
		if path == "" {
			if home, herr := os.UserHomeDir(); herr == nil && home != "" {
				path = filepath.Join(home, ".kube", "config")
			}
		}
		cfg, err = clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			log.Warn("no cluster config available, deployments cannot be reconciled", logger.Error(err))
			return &KubeClient{namespace: namespace, log: log}
		}
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		log.Warn("failed to build cluster clientset", logger.Error(err))
		return &KubeClient{namespace: namespace, log: log}
	}

	return &KubeClient{client: clientset, namespace: namespace, log: log}
}

func (k *KubeClient) Enabled() bool {
	return k != nil && k.client != nil
}

func int32Ptr(i int32) *int32 { return &i }

// buildDeploymentObject constructs the minimal Deployment object the
// reconciler applies: one container running imageRef, named per
// ClusterName.
func buildDeploymentObject(namespace, name, imageRef string, replicas int32) *appsv1.Deployment {
	labels := map[string]string{"app": name, "managed-by": "platform-reconciler"}
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(replicas),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "app",
							Image: imageRef,
							Ports: []corev1.ContainerPort{{ContainerPort: 8080}},
						},
					},
				},
			},
		},
	}
}

// ApplyDeployment creates the cluster Deployment named name if absent,
// or updates its image/replica count if present.
func (k *KubeClient) ApplyDeployment(ctx context.Context, name, imageRef string, replicas int32) error {
	if !k.Enabled() {
		return fmt.Errorf("cluster client not available")
	}
	client := k.client.AppsV1().Deployments(k.namespace)

	existing, err := client.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return err
		}
		_, createErr := client.Create(ctx, buildDeploymentObject(k.namespace, name, imageRef, replicas), metav1.CreateOptions{})
		if createErr != nil && !apierrors.IsAlreadyExists(createErr) {
			return createErr
		}
		return nil
	}

	existing.Spec.Replicas = int32Ptr(replicas)
	if len(existing.Spec.Template.Spec.Containers) > 0 {
		existing.Spec.Template.Spec.Containers[0].Image = imageRef
	}
	_, err = client.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

// RolloutReady reports whether every desired replica of name is ready.
// A not-found deployment reports ok=false, which the reconciler treats
// as "nothing to check" rather than failure.
func (k *KubeClient) RolloutReady(ctx context.Context, name string) (ready bool, ok bool, err error) {
	if !k.Enabled() {
		return false, false, fmt.Errorf("cluster client not available")
	}
	dep, getErr := k.client.AppsV1().Deployments(k.namespace).Get(ctx, name, metav1.GetOptions{})
	if getErr != nil {
		if apierrors.IsNotFound(getErr) {
			return false, false, nil
		}
		return false, false, getErr
	}
	desired := int32(1)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	return dep.Status.ReadyReplicas >= desired && desired > 0, true, nil
}

// ScaleToZero sets replicas to 0 for desired_status=stopped, leaving the
// Deployment object in place so a later active desired_status can scale
// it back up without reapplying the full spec.
func (k *KubeClient) ScaleToZero(ctx context.Context, name string) error {
	if !k.Enabled() {
		return nil
	}
	client := k.client.AppsV1().Deployments(k.namespace)
	existing, err := client.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	existing.Spec.Replicas = int32Ptr(0)
	_, err = client.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}

// DeleteDeployment removes the cluster Deployment object, ignoring a
// not-found error so cleanup stays idempotent.
func (k *KubeClient) DeleteDeployment(ctx context.Context, name string) error {
	if !k.Enabled() {
		return nil
	}
	err := k.client.AppsV1().Deployments(k.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	return nil
}
