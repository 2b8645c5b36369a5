package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ErrBlockedTarget marks URLs whose destination must never be connected
// to: loopback, link-local, private ranges, or non-HTTP schemes. Sources
// are untrusted input, so every hop is vetted at dial time.
var ErrBlockedTarget = errors.New("blocked target address")

// Resolver is the DNS lookup the dial guard runs before connecting.
// *net.Resolver satisfies it; tests substitute fixed answers.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// checkURL rejects what it can before any DNS resolution happens:
// non-HTTP(S) schemes, localhost names, and literal blocked IPs.
// allowPrivate skips the address checks for deployments whose sources
// legitimately live on a LAN; the scheme check always applies.
func checkURL(u *url.URL, allowPrivate bool) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q", ErrBlockedTarget, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrBlockedTarget)
	}
	if allowPrivate {
		return nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlockedTarget, host)
	}
	if ip := net.ParseIP(host); ip != nil && blockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedTarget, ip)
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// safeDialContext resolves the hostname itself, validates every candidate
// IP and dials the first allowed one. Because the connection goes to the
// vetted address while the URL's hostname stays in the Host header and
// SNI, there is no gap between validation and connect, and redirects get
// re-vetted on every hop.
func safeDialContext(resolver Resolver, timeout time.Duration, allowPrivate bool) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		d := &net.Dialer{Timeout: timeout}
		if allowPrivate {
			return d.DialContext(ctx, network, addr)
		}

		if ip := net.ParseIP(host); ip != nil {
			if blockedIP(ip) {
				return nil, fmt.Errorf("%w: %s", ErrBlockedTarget, ip)
			}
			return d.DialContext(ctx, network, addr)
		}

		if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
			return nil, fmt.Errorf("%w: %s", ErrBlockedTarget, host)
		}

		addrs, err := resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		var lastErr error
		blockedAll := true
		for _, a := range addrs {
			if blockedIP(a.IP) {
				continue
			}
			blockedAll = false
			conn, derr := d.DialContext(ctx, network, net.JoinHostPort(a.IP.String(), port))
			if derr == nil {
				return conn, nil
			}
			lastErr = derr
		}
		if blockedAll {
			return nil, fmt.Errorf("%w: %s resolves only to blocked addresses", ErrBlockedTarget, host)
		}
		return nil, lastErr
	}
}
