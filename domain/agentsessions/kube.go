package agentsessions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/forgehub/platform/pkg/logger"
)

// KubeClient wraps the subset of the cluster API the agent-session
// controller needs: creating/deleting the agent Pod, polling its phase,
// and tailing its logs.
type KubeClient struct {
	client    *kubernetes.Clientset
	namespace string
	log       *slog.Logger
}

// NewKubeClient builds a clientset from in-cluster config, falling back
// to kubeconfigPath (or $KUBECONFIG, or ~/.kube/config) outside a
// cluster. Returns a nil-client KubeClient rather than an error when
// neither is reachable, so the rest of the service can run in a degraded
// mode during local development.
func NewKubeClient(kubeconfigPath, namespace string, log *slog.Logger) *KubeClient {
	log = log.With(logger.Scope("agentsessions.kube"))

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
			log.Warn("no cluster config available, agent pods cannot be scheduled", logger.Error(err))
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

// ApplyPod creates pod, ignoring an already-exists conflict so repeated
// calls for the same session are idempotent.
func (k *KubeClient) ApplyPod(ctx context.Context, pod *corev1.Pod) error {
	if !k.Enabled() {
		return fmt.Errorf("cluster client not available")
	}
	_, err := k.client.CoreV1().Pods(k.namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return err
	}
	return nil
}

// PodPhase returns the pod's current phase. A not-found pod reports
// corev1.PodSucceeded-equivalent absence via the ok return being false,
// which the reaper treats as already cleaned up.
func (k *KubeClient) PodPhase(ctx context.Context, podName string) (phase corev1.PodPhase, ok bool, err error) {
	if !k.Enabled() {
		return "", false, fmt.Errorf("cluster client not available")
	}
	pod, getErr := k.client.CoreV1().Pods(k.namespace).Get(ctx, podName, metav1.GetOptions{})
	if getErr != nil {
		if apierrors.IsNotFound(getErr) {
			return "", false, nil
		}
		return "", false, getErr
	}
	return pod.Status.Phase, true, nil
}

// PodLogs returns the main container's logs for podName. Safe to call
// against an already-deleted pod; returns an error the caller can treat
// as "nothing to capture".
func (k *KubeClient) PodLogs(ctx context.Context, podName, container string) (io.ReadCloser, error) {
	if !k.Enabled() {
		return nil, fmt.Errorf("cluster client not available")
	}
	req := k.client.CoreV1().Pods(k.namespace).GetLogs(podName, &corev1.PodLogOptions{Container: container})
	return req.Stream(ctx)
}

// StreamPodLogs follows podName's container output as it's written,
// rather than returning what's buffered so far. The stream ends when the
// container exits or ctx is canceled.
func (k *KubeClient) StreamPodLogs(ctx context.Context, podName, container string) (io.ReadCloser, error) {
	if !k.Enabled() {
		return nil, fmt.Errorf("cluster client not available")
	}
	req := k.client.CoreV1().Pods(k.namespace).GetLogs(podName, &corev1.PodLogOptions{Container: container, Follow: true})
	return req.Stream(ctx)
}

// DeletePod removes podName, ignoring a not-found error so the reaper's
// cleanup step is idempotent against a pod that's already gone.
func (k *KubeClient) DeletePod(ctx context.Context, podName string) error {
	if !k.Enabled() {
		return nil
	}
	err := k.client.CoreV1().Pods(k.namespace).Delete(ctx, podName, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	return nil
}
