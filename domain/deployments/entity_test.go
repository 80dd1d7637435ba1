package deployments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClusterName(t *testing.T) {
	assert.Equal(t, "widgets-staging", ClusterName("Widgets", "Staging"))
	assert.Equal(t, "my-app-preview-feature-x", ClusterName("My App", "preview-feature_x"))
}

func TestDeployment_ToDTO(t *testing.T) {
	branch := "feature/x"
	slug := "feature-x"
	d := &Deployment{
		ID:            "d1",
		ProjectID:     "p1",
		Environment:   "staging",
		ImageRef:      "registry/app:v1",
		DesiredStatus: DesiredActive,
		CurrentStatus: CurrentHealthy,
		IsPreview:     true,
		Branch:        &branch,
		BranchSlug:    &slug,
	}
	dto := d.ToDTO()
	assert.Equal(t, d.ID, dto.ID)
	assert.Equal(t, d.ImageRef, dto.ImageRef)
	assert.Equal(t, DesiredActive, dto.DesiredStatus)
	assert.Equal(t, CurrentHealthy, dto.CurrentStatus)
	assert.True(t, dto.IsPreview)
	assert.Equal(t, &branch, dto.Branch)
}
