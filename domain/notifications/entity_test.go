package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotification_IsUnread(t *testing.T) {
	assert.True(t, (&Notification{Status: StatusPending}).IsUnread())
	assert.True(t, (&Notification{Status: StatusSent}).IsUnread())
	assert.False(t, (&Notification{Status: StatusRead}).IsUnread())
}
