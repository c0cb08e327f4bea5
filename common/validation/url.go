package validation

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// URLValidator checks URLs the service is asked to fetch on a caller's behalf.
// Only http/https is allowed, and unless private hosts are allowed the host
// must not resolve to loopback, private, link-local, multicast or unspecified addresses.
type URLValidator struct {
	allowedProtocols map[string]bool
	blockedHostnames map[string]bool
	allowPrivate     bool
	lookupIP         func(ctx context.Context, host string) ([]net.IP, error)
}

// URLOption configures a URLValidator
type URLOption func(*URLValidator)

// AllowPrivateHosts disables the host checks (local development)
func AllowPrivateHosts(allow bool) URLOption {
	return func(v *URLValidator) {
		v.allowPrivate = allow
	}
}

// WithResolver replaces DNS resolution (tests)
func WithResolver(lookup func(ctx context.Context, host string) ([]net.IP, error)) URLOption {
	return func(v *URLValidator) {
		v.lookupIP = lookup
	}
}

// NewURLValidator creates a validator with the default rules
func NewURLValidator(opts ...URLOption) *URLValidator {
	v := &URLValidator{
		allowedProtocols: map[string]bool{
			"http":  true,
			"https": true,
		},
		blockedHostnames: map[string]bool{
			"localhost":        true,
			"0.0.0.0":          true,
			"::":               true,
			"::1":              true,
			"::ffff:127.0.0.1": true,
		},
		lookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateScheme checks only the protocol and host presence (configured endpoints)
func (v *URLValidator) ValidateScheme(rawURL string) (*url.URL, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("protocol scheme is required")
	}
	if !v.allowedProtocols[scheme] {
		return nil, fmt.Errorf("protocol '%s' is not allowed (only http/https permitted)", parsedURL.Scheme)
	}
	if parsedURL.Hostname() == "" {
		return nil, fmt.Errorf("hostname is required")
	}

	return parsedURL, nil
}

// Validate performs protocol and SSRF validation on a URL
func (v *URLValidator) Validate(ctx context.Context, rawURL string) error {
	parsedURL, err := v.ValidateScheme(rawURL)
	if err != nil {
		return err
	}
	if v.allowPrivate {
		return nil
	}

	host := strings.ToLower(parsedURL.Hostname())
	if v.blockedHostnames[host] || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("hostname '%s' is blocked (SSRF protection: localhost access)", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		return validateIP(ip)
	}

	ips, err := v.lookupIP(ctx, host)
	if err != nil {
		// the fetch itself will fail the same way
		return nil
	}
	for _, ip := range ips {
		if err := validateIP(ip); err != nil {
			return err
		}
	}
	return nil
}

func validateIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("IP %s is blocked (SSRF protection: loopback address)", ip)
	case ip.IsPrivate():
		return fmt.Errorf("IP %s is blocked (SSRF protection: private network)", ip)
	case ip.IsLinkLocalUnicast():
		return fmt.Errorf("IP %s is blocked (SSRF protection: link-local address)", ip)
	case ip.IsMulticast():
		return fmt.Errorf("IP %s is blocked (SSRF protection: multicast address)", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("IP %s is blocked (SSRF protection: unspecified address)", ip)
	}
	return nil
}
