package agentsessions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	"github.com/forgehub/platform/internal/config"
)

func TestBuildPodSpec_ScenarioFixture(t *testing.T) {
	cfg := config.Agent{
		CLIImage:           "claude-agent:local",
		GitCloneImage:      "alpine/git:latest",
		ProviderSecretName: "platform-provider-keys",
		ProviderSecretKey:  "anthropic-api-key",
		PlatformAPIURL:     "http://platform-api:3002",
		WorkspaceSize:      "2Gi",
		CPURequest:         "250m",
		CPULimit:           "2",
		MemRequest:         "256Mi",
		MemLimit:           "2Gi",
	}
	cluster := config.Cluster{AgentNS: "platform-agents"}

	sessionID := "12345678-1234-1234-1234-123456789abc"
	pod := buildPodSpec(cfg, cluster, PodSpecInput{
		SessionID:     sessionID,
		ProjectID:     "abcdef01-0000-0000-0000-000000000000",
		RepoPath:      "/repos/widgets.git",
		Branch:        DefaultBranch(sessionID),
		Prompt:        "Fix the tests",
		PlatformToken: "plat_api_deadbeef",
	})

	assert.Equal(t, "agent-12345678", pod.Name)
	assert.Equal(t, corev1.RestartPolicyNever, pod.Spec.RestartPolicy)

	require.Len(t, pod.Spec.InitContainers, 1)
	initC := pod.Spec.InitContainers[0]
	assert.Equal(t, "git-clone", initC.Name)
	assert.Equal(t, "alpine/git:latest", initC.Image)

	require.Len(t, pod.Spec.Containers, 1)
	main := pod.Spec.Containers[0]
	assert.Equal(t, "claude", main.Name)
	assert.True(t, main.Stdin)
	assert.False(t, main.TTY)

	env := map[string]string{}
	var hasSecretKeyRef bool
	for _, e := range main.Env {
		if e.ValueFrom != nil && e.ValueFrom.SecretKeyRef != nil {
			hasSecretKeyRef = true
			continue
		}
		env[e.Name] = e.Value
	}
	assert.Equal(t, sessionID, env["SESSION_ID"])
	assert.Equal(t, "plat_api_deadbeef", env["PLATFORM_API_TOKEN"])
	assert.Equal(t, "abcdef01-0000-0000-0000-000000000000", env["PROJECT_ID"])
	assert.Equal(t, "agent/12345678", env["BRANCH"])
	assert.Equal(t, "dev", env["AGENT_ROLE"])
	assert.True(t, hasSecretKeyRef)

	argsJoined := strings.Join(main.Args, " ")
	assert.Contains(t, argsJoined, "--output-format stream-json")
	assert.Contains(t, argsJoined, "--mcp-config /tmp/mcp-config.json")
	assert.True(t, strings.HasSuffix(argsJoined, "Fix the tests"))
}
