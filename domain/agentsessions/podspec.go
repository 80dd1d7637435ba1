package agentsessions

import (
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/forgehub/platform/internal/config"
)

const (
	LabelComponent = "platform.io/component"
	LabelSession   = "platform.io/session"
	LabelProject   = "platform.io/project"

	workspaceVolume = "workspace"
	workspaceMount  = "/workspace"
)

// PodSpecInput is everything podSpec needs to deterministically build one
// agent session's workload Pod; two calls with equal fields always
// produce an identical Pod object.
type PodSpecInput struct {
	SessionID     string
	ProjectID     string
	RepoPath      string
	Branch        string
	Prompt        string
	PlatformToken string
}

// buildPodSpec constructs the Pod run for one agent session: an init
// container clones the project's bare repository and checks out Branch
// into a shared emptyDir workspace, then the main container runs the
// provider CLI against that workspace.
func buildPodSpec(cfg config.Agent, cluster config.Cluster, in PodSpecInput) *corev1.Pod {
	labels := map[string]string{
		LabelComponent: "agent-session",
		LabelSession:   in.SessionID,
		LabelProject:   in.ProjectID,
	}

	args := []string{
		"--output-format", "stream-json",
		"--permission-mode", "auto-accept-only",
		"--mcp-config", "/tmp/mcp-config.json",
	}
	if cfg.DefaultModel != "" {
		args = append(args, "--model", cfg.DefaultModel)
	}
	if cfg.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(cfg.MaxTurns))
	}
	args = append(args, in.Prompt)

	env := []corev1.EnvVar{
		{Name: "SESSION_ID", Value: in.SessionID},
		{Name: "PROJECT_ID", Value: in.ProjectID},
		{Name: "PLATFORM_API_URL", Value: cfg.PlatformAPIURL},
		{Name: "PLATFORM_API_TOKEN", Value: in.PlatformToken},
		{Name: "BRANCH", Value: in.Branch},
		{Name: "AGENT_ROLE", Value: "dev"},
		{
			Name: "ANTHROPIC_API_KEY",
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: cfg.ProviderSecretName},
					Key:                  cfg.ProviderSecretKey,
				},
			},
		},
	}

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      PodName(in.SessionID),
			Namespace: cluster.AgentNS,
			Labels:    labels,
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Volumes: []corev1.Volume{
				{
					Name: workspaceVolume,
					VolumeSource: corev1.VolumeSource{
						EmptyDir: &corev1.EmptyDirVolumeSource{
							SizeLimit: resourceQtyPtr(cfg.WorkspaceSize),
						},
					},
				},
			},
			InitContainers: []corev1.Container{
				{
					Name:    "git-clone",
					Image:   cfg.GitCloneImage,
					Command: []string{"sh", "-lc"},
					Args: []string{
						"git clone \"$REPO_PATH\" " + workspaceMount + "/repo && " +
							"cd " + workspaceMount + "/repo && " +
							"git checkout -B \"$BRANCH\"",
					},
					Env: []corev1.EnvVar{
						{Name: "REPO_PATH", Value: in.RepoPath},
						{Name: "BRANCH", Value: in.Branch},
					},
					VolumeMounts: []corev1.VolumeMount{
						{Name: workspaceVolume, MountPath: workspaceMount},
					},
				},
			},
			Containers: []corev1.Container{
				{
					Name:       "claude",
					Image:      cfg.CLIImage,
					WorkingDir: workspaceMount + "/repo",
					Stdin:      true,
					TTY:        false,
					Env:        env,
					Args:       args,
					VolumeMounts: []corev1.VolumeMount{
						{Name: workspaceVolume, MountPath: workspaceMount},
					},
					Resources: corev1.ResourceRequirements{
						Requests: corev1.ResourceList{
							corev1.ResourceCPU:    resourceQty(cfg.CPURequest),
							corev1.ResourceMemory: resourceQty(cfg.MemRequest),
						},
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    resourceQty(cfg.CPULimit),
							corev1.ResourceMemory: resourceQty(cfg.MemLimit),
						},
					},
				},
			},
		},
	}
}

func resourceQty(value string) resource.Quantity {
	q, err := resource.ParseQuantity(value)
	if err != nil {
		return resource.MustParse("100m")
	}
	return q
}

func resourceQtyPtr(value string) *resource.Quantity {
	q := resourceQty(value)
	return &q
}

