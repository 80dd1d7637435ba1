package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateVisibility_AcceptsPublicAndPrivate(t *testing.T) {
	assert.NoError(t, validateVisibility(VisibilityPublic))
	assert.NoError(t, validateVisibility(VisibilityPrivate))
}

func TestValidateVisibility_RejectsUnknown(t *testing.T) {
	assert.Error(t, validateVisibility(Visibility("archived")))
}

func TestProject_ToDTO_CopiesFields(t *testing.T) {
	p := &Project{
		ID:         "p1",
		Name:       "forge",
		OwnerID:    "u1",
		Visibility: VisibilityPublic,
		RepoPath:   "git@example.com:forge.git",
	}
	dto := p.ToDTO()
	assert.Equal(t, p.ID, dto.ID)
	assert.Equal(t, p.Name, dto.Name)
	assert.Equal(t, p.OwnerID, dto.OwnerID)
	assert.Equal(t, p.Visibility, dto.Visibility)
	assert.Equal(t, p.RepoPath, dto.RepoPath)
}
