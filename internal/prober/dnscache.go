package prober

import (
	"context"
	"net"
	"sync"

	"golang.org/x/sync/singleflight"
)

// dnsCache memoizes hostname resolutions for the lifetime of one run.
// Configs from the same provider share hosts heavily, and singleflight
// keeps concurrent probes for one host down to a single lookup.
type dnsCache struct {
	resolver *net.Resolver
	group    singleflight.Group

	mu      sync.RWMutex
	entries map[string]string // host -> preferred IP
}

func newDNSCache(resolver *net.Resolver) *dnsCache {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &dnsCache{
		resolver: resolver,
		entries:  make(map[string]string),
	}
}

func (c *dnsCache) resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	c.mu.RLock()
	ip, ok := c.entries[host]
	c.mu.RUnlock()
	if ok {
		return ip, nil
	}

	v, err, _ := c.group.Do(host, func() (any, error) {
		addrs, err := c.resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		picked := ""
		for _, a := range addrs {
			if a.IP.To4() != nil {
				picked = a.IP.String()
				break
			}
		}
		if picked == "" && len(addrs) > 0 {
			picked = addrs[0].IP.String()
		}
		if picked == "" {
			return nil, &net.DNSError{Err: "no addresses", Name: host}
		}
		c.mu.Lock()
		c.entries[host] = picked
		c.mu.Unlock()
		return picked, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
