package webhooks

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/forgehub/platform/pkg/apperror"
)

// validateURL checks scheme and, at creation time, performs a best-effort
// hostname resolution check. The dispatcher re-resolves at send time to
// defeat DNS rebinding between validation and delivery.
func validateURL(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, apperror.ErrBadRequest.WithMessage("invalid webhook url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperror.ErrBadRequest.WithMessage("webhook url must be http or https")
	}
	if u.Hostname() == "" {
		return nil, apperror.ErrBadRequest.WithMessage("webhook url must have a host")
	}
	if err := checkResolvedAddrs(ctx, u.Hostname()); err != nil {
		return nil, err
	}
	return u, nil
}

// checkResolvedAddrs resolves host and rejects it if any resulting address
// is loopback, link-local, private, or the cloud metadata address.
func checkResolvedAddrs(ctx context.Context, host string) error {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage(fmt.Sprintf("could not resolve webhook host: %s", host))
	}
	for _, ip := range ips {
		if isForbiddenAddr(ip.IP) {
			return apperror.ErrBadRequest.WithMessage("webhook url resolves to a disallowed address")
		}
	}
	return nil
}

func isForbiddenAddr(ip net.IP) bool {
	if ip.Equal(net.IPv4(169, 254, 169, 254)) {
		return true
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	return false
}
