package apitoken

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken_HasExpectedPrefixAndHash(t *testing.T) {
	raw, hash, err := generateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, tokenPrefix))
	assert.Len(t, raw, len(tokenPrefix)+64)
	assert.Len(t, hash, 64)
	assert.NotContains(t, hash, tokenPrefix)
}

func TestGenerateToken_ValuesDiffer(t *testing.T) {
	a, _, err := generateToken()
	require.NoError(t, err)
	b, _, err := generateToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestMissingScopes_NoEscalation(t *testing.T) {
	missing := missingScopes([]string{"project:read", "deploy:write"}, []string{"project:read"})
	assert.Empty(t, missing)
}

func TestMissingScopes_DetectsEscalation(t *testing.T) {
	missing := missingScopes([]string{"project:read"}, []string{"project:read", "admin:users"})
	assert.Equal(t, []string{"admin:users"}, missing)
}
