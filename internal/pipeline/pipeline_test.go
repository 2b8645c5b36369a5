package pipeline

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/config"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/fetcher"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/history"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/prober"
)

func testConfig() *config.Config {
	return &config.Config{
		FetchWorkers:     4,
		ProbeWorkers:     8,
		RequestTimeout:   2 * time.Second,
		ConnectTimeout:   time.Second,
		FetchAttempts:    1,
		MaxBodyBytes:     1 << 20,
		MaxDecodeBytes:   1 << 18,
		BreakerThreshold: 10,
		BreakerCooldown:  time.Minute,
		SortBy:           "latency",
		WeightUptime:     0.5,
		WeightPing:       0.3,
		WeightReach:      0.2,
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	f := fetcher.New(fetcher.Options{
		Attempts:         cfg.FetchAttempts,
		BackoffBase:      time.Millisecond,
		BackoffJitter:    time.Millisecond,
		RequestTimeout:   cfg.RequestTimeout,
		ConnectTimeout:   cfg.ConnectTimeout,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
		AllowPrivate:     true, // sources live on httptest loopback servers
	}, nil)
	store, err := history.Open(filepath.Join(t.TempDir(), "history.dat"), nil)
	require.NoError(t, err)
	pr := prober.New(time.Second, nil, nil)
	return New(cfg, f, pr, store)
}

// livePort starts a TCP acceptor and returns its port.
func livePort(t *testing.T) int {
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
	_, portStr, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return port
}

// deadPort returns a loopback port with no listener behind it.
func deadPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.Atoi(portStr)
	l.Close()
	return port
}

func TestRunEndToEnd(t *testing.T) {
	alive := livePort(t)
	dead := deadPort(t)

	payload := fmt.Sprintf(
		"trojan://secret@127.0.0.1:%d#alive\n"+
			"trojan://secret@127.0.0.1:%d#alive-dup\n"+
			"vless://7c1f29e2-0aee-44c1-9bb7-7d1853bf0c44@127.0.0.1:%d?type=tcp#dead\n"+
			"trojan://onlyhost\n"+
			"just some prose that is not a config\n",
		alive, alive, dead)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	p := newTestPipeline(t, testConfig())
	results, stats := p.Run(context.Background(), NewRunContext(nil), []string{srv.URL}, nil)

	assert.Equal(t, 1, stats.SourcesChecked)
	assert.Equal(t, 0, stats.SourcesFailed)
	assert.Equal(t, 4, stats.ConfigsFetched)
	assert.Equal(t, 1, stats.ParseFailures)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	assert.Equal(t, 2, stats.ConfigsProbed)
	assert.Equal(t, 1, stats.ConfigsReachable)

	require.Len(t, results, 2)
	// Latency sort puts the reachable config first.
	assert.Equal(t, model.SchemeTrojan, results[0].Scheme)
	assert.True(t, results[0].Reachable)
	assert.Greater(t, results[0].PingSeconds, 0.0)
	assert.Equal(t, 1.0, results[0].Reliability)

	assert.Equal(t, model.SchemeVLESS, results[1].Scheme)
	assert.False(t, results[1].Reachable)
	assert.Equal(t, 0.0, results[1].Reliability)
}

func TestRunDeadSourceTallied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := newTestPipeline(t, testConfig())
	results, stats := p.Run(context.Background(), NewRunContext(nil), []string{srv.URL}, nil)

	assert.Empty(t, results)
	assert.Equal(t, 1, stats.SourcesChecked)
	assert.Equal(t, 1, stats.SourcesFailed)
	assert.Equal(t, 0, stats.ConfigsFetched)
}

func TestRunExtraTextsIngested(t *testing.T) {
	alive := livePort(t)
	text := fmt.Sprintf("trojan://secret@127.0.0.1:%d#scraped", alive)

	p := newTestPipeline(t, testConfig())
	results, stats := p.Run(context.Background(), NewRunContext(nil), nil, []string{text})

	assert.Equal(t, 0, stats.SourcesChecked)
	assert.Equal(t, 1, stats.ConfigsFetched)
	require.Len(t, results, 1)
	assert.Equal(t, "inline", results[0].SourceURL)
	assert.True(t, results[0].Reachable)
}

func TestRunDedupAcrossSources(t *testing.T) {
	alive := livePort(t)
	link := fmt.Sprintf("trojan://secret@127.0.0.1:%d#shared", alive)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, link)
	})
	srvA := httptest.NewServer(handler)
	defer srvA.Close()
	srvB := httptest.NewServer(handler)
	defer srvB.Close()

	p := newTestPipeline(t, testConfig())
	results, stats := p.Run(context.Background(), NewRunContext(nil), []string{srvA.URL, srvB.URL}, nil)

	assert.Equal(t, 2, stats.SourcesChecked)
	assert.Equal(t, 2, stats.ConfigsFetched)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	assert.Len(t, results, 1)
}

func TestHistoryAccumulatesAcrossRuns(t *testing.T) {
	alive := livePort(t)
	text := fmt.Sprintf("trojan://secret@127.0.0.1:%d#persist", alive)

	cfg := testConfig()
	p := newTestPipeline(t, cfg)
	_, _ = p.Run(context.Background(), NewRunContext(nil), nil, []string{text})

	// Second run against the same store; the dedup filter is per-pipeline,
	// so build a fresh one sharing the store.
	second := New(cfg, p.fetcher, p.prober, p.store)
	results, _ := second.Run(context.Background(), NewRunContext(nil), nil, []string{text})

	require.Len(t, results, 1)
	rec, ok := p.store.Get(results[0].Fingerprint)
	require.True(t, ok)
	assert.Equal(t, 2, rec.Successes)
	assert.Equal(t, 1.0, results[0].Reliability)
}
