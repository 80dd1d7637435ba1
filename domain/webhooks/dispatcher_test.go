package webhooks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignBody_IsDeterministicHexHMAC(t *testing.T) {
	sig1 := signBody("secret", []byte(`{"a":1}`))
	sig2 := signBody("secret", []byte(`{"a":1}`))
	assert.Equal(t, sig1, sig2)
	assert.Len(t, sig1, 64) // hex-encoded sha256 is 64 chars
}

func TestSignBody_DiffersByBodyAndSecret(t *testing.T) {
	base := signBody("secret", []byte("body"))
	assert.NotEqual(t, base, signBody("other", []byte("body")))
	assert.NotEqual(t, base, signBody("secret", []byte("other body")))
}

func TestWebhook_Matches(t *testing.T) {
	w := &Webhook{IsActive: true, Events: []string{"deploy.succeeded", "deploy.failed"}}
	assert.True(t, w.Matches("deploy.succeeded"))
	assert.False(t, w.Matches("deploy.started"))

	w.IsActive = false
	assert.False(t, w.Matches("deploy.succeeded"))
}

func TestBackoff_GrowsWithAttemptAndCaps(t *testing.T) {
	assert.Equal(t, 30*time.Second, backoff(1, 30*time.Second, 30*time.Minute))
	assert.Equal(t, 120*time.Second, backoff(2, 30*time.Second, 30*time.Minute))
	assert.Equal(t, 30*time.Minute, backoff(100, 30*time.Second, 30*time.Minute))
}
