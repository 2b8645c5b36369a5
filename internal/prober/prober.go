package prober

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/geoip"
)

// Result of one endpoint probe. Unreachable is a value, not an error:
// dead endpoints are an expected, counted outcome.
type Result struct {
	Reachable bool
	Elapsed   time.Duration
	IP        string
	Geo       geoip.Info
}

// Prober measures bare TCP-connect latency to declared endpoints. It does
// not speak any proxy protocol; an open port is the whole signal.
type Prober struct {
	timeout time.Duration
	dns     *dnsCache
	geo     *geoip.Database
	log     *slog.Logger

	mu       sync.Mutex
	geoCache map[string]geoip.Info // keyed by resolved IP
}

func New(timeout time.Duration, geo *geoip.Database, log *slog.Logger) *Prober {
	if log == nil {
		log = slog.Default()
	}
	return &Prober{
		timeout:  timeout,
		dns:      newDNSCache(nil),
		geo:      geo,
		log:      log,
		geoCache: make(map[string]geoip.Info),
	}
}

// Probe resolves host (cached), TCP-connects with the configured timeout
// and returns the elapsed time on success. DNS or connect failure yields
// an unreachable Result.
func (p *Prober) Probe(ctx context.Context, host string, port int) Result {
	ip, err := p.dns.resolve(ctx, host)
	if err != nil {
		p.log.Debug("dns_resolution_failed", "host", host, "error", err)
		return Result{}
	}

	res := Result{IP: ip, Geo: p.lookupGeo(ip)}

	d := &net.Dialer{Timeout: p.timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		p.log.Debug("tcp_connect_failed", "host", host, "port", port, "error", err)
		return res
	}
	conn.Close()

	res.Reachable = true
	res.Elapsed = time.Since(start)
	return res
}

func (p *Prober) lookupGeo(ip string) geoip.Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.geoCache[ip]; ok {
		return info
	}
	info := p.geo.Lookup(ip)
	p.geoCache[ip] = info
	return info
}
