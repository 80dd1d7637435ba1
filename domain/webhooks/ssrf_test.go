package webhooks

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsForbiddenAddr(t *testing.T) {
	cases := []struct {
		ip        string
		forbidden bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"169.254.169.254", true},
		{"10.0.0.5", true},
		{"172.16.0.5", true},
		{"192.168.1.5", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.forbidden, isForbiddenAddr(net.ParseIP(tc.ip)), tc.ip)
	}
}
