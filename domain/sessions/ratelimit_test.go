package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginRateLimiter_AllowsUpToBurst(t *testing.T) {
	l := NewLoginRateLimiter(3, time.Minute)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "fourth attempt within the window must be rejected")
}

func TestLoginRateLimiter_IsolatesSources(t *testing.T) {
	l := NewLoginRateLimiter(1, time.Minute)

	assert.True(t, l.Allow("source-a"))
	assert.False(t, l.Allow("source-a"))
	assert.True(t, l.Allow("source-b"), "a different source must have its own budget")
}
