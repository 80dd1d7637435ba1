package permissions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnownPermission(t *testing.T) {
	assert.True(t, IsKnownPermission("project:read"))
	assert.True(t, IsKnownPermission("admin:delegate"))
	assert.False(t, IsKnownPermission("made:up"))
}

func TestDelegation_Valid(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2026-07-29T12:00:00Z")
	require.NoError(t, err)

	future, err := time.Parse(time.RFC3339, "2026-07-30T12:00:00Z")
	require.NoError(t, err)
	d := &Delegation{ExpiresAt: future}
	assert.True(t, d.Valid(now))

	past, err := time.Parse(time.RFC3339, "2026-07-01T12:00:00Z")
	require.NoError(t, err)
	d2 := &Delegation{ExpiresAt: past}
	assert.False(t, d2.Valid(now))

	revokedAt := now
	d3 := &Delegation{ExpiresAt: future, RevokedAt: &revokedAt}
	assert.False(t, d3.Valid(now))
}

func TestCacheKey_DistinguishesGlobalFromScoped(t *testing.T) {
	projectID := "proj-1"
	global := cacheKey("user-1", nil)
	scoped := cacheKey("user-1", &projectID)
	assert.NotEqual(t, global, scoped)
}
