package prober

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestProbeReachable(t *testing.T) {
	host, port := listen(t)

	p := New(2*time.Second, nil, nil)
	res := p.Probe(context.Background(), host, port)

	assert.True(t, res.Reachable)
	assert.Greater(t, res.Elapsed, time.Duration(0))
	assert.Equal(t, "127.0.0.1", res.IP)
}

func TestProbeClosedPort(t *testing.T) {
	// Grab a port and close it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.Atoi(portStr)
	l.Close()

	p := New(500*time.Millisecond, nil, nil)
	res := p.Probe(context.Background(), "127.0.0.1", port)

	assert.False(t, res.Reachable)
	assert.Equal(t, time.Duration(0), res.Elapsed)
}

func TestProbeUnresolvableHost(t *testing.T) {
	p := New(500*time.Millisecond, nil, nil)
	res := p.Probe(context.Background(), "definitely-not-a-real-host.invalid", 443)

	assert.False(t, res.Reachable)
	assert.Empty(t, res.IP)
}

func TestDNSCacheLiteralIPBypassesLookup(t *testing.T) {
	c := newDNSCache(nil)

	ip, err := c.resolve(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)

	ip, err = c.resolve(context.Background(), "2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", ip)
}

func TestDNSCacheReturnsCachedEntry(t *testing.T) {
	c := newDNSCache(nil)
	c.mu.Lock()
	c.entries["cached.example"] = "198.51.100.9"
	c.mu.Unlock()

	ip, err := c.resolve(context.Background(), "cached.example")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.9", ip)
}
