package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a source's breaker is open and the fetch
// was skipped without any network call.
var ErrCircuitOpen = errors.New("circuit breaker open")

// FetchError is a network or HTTP failure for one source. It is surfaced
// to the caller only as an aggregate count; a dead source never aborts
// the run.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Options struct {
	Attempts         int
	BackoffBase      time.Duration
	BackoffJitter    time.Duration
	RequestTimeout   time.Duration
	ConnectTimeout   time.Duration
	MaxBodyBytes     int64
	BreakerThreshold int
	BreakerCooldown  time.Duration
	UserAgent        string

	// Resolver backs the dial guard's hostname lookups; nil means
	// net.DefaultResolver.
	Resolver Resolver

	// AllowPrivate disables the SSRF address checks for deployments
	// whose sources live on a private network. Off by default.
	AllowPrivate bool
}

// Fetcher retrieves source text over HTTP under a retry/backoff policy,
// with a per-source circuit breaker and an SSRF guard wired into the
// transport's dialer.
type Fetcher struct {
	opts   Options
	client *http.Client
	log    *slog.Logger

	mu       sync.Mutex
	breakers map[string]*breaker
}

func New(opts Options, log *slog.Logger) *Fetcher {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "config-merger/1.0"
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	transport := &http.Transport{
		DialContext:         safeDialContext(opts.Resolver, opts.ConnectTimeout, opts.AllowPrivate),
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}
	return &Fetcher{
		opts: opts,
		client: &http.Client{
			Transport: transport,
		},
		log:      log,
		breakers: make(map[string]*breaker),
	}
}

// Fetch returns the body of rawURL, retrying retryable failures with
// exponential backoff plus jitter. 4xx responses other than 429 are
// terminal; 5xx, 429 and transport errors are retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	if err := checkURL(u, f.opts.AllowPrivate); err != nil {
		// Rejected before DNS resolution; still a source failure.
		f.breakerFor(rawURL).Failure()
		return "", &FetchError{URL: rawURL, Err: err}
	}

	br := f.breakerFor(rawURL)
	if !br.Allow() {
		return "", ErrCircuitOpen
	}

	log := f.log.With("source", rawURL)
	var lastErr error

	for attempt := 1; attempt <= f.opts.Attempts; attempt++ {
		body, retryable, err := f.attempt(ctx, rawURL)
		if err == nil {
			br.Success()
			return body, nil
		}
		lastErr = err
		log.Debug("fetch_attempt_failed", "attempt", attempt, "retryable", retryable, "error", err)
		if !retryable || attempt == f.opts.Attempts {
			break
		}
		if err := sleepBackoff(ctx, f.opts.BackoffBase, f.opts.BackoffJitter, attempt); err != nil {
			lastErr = err
			break
		}
	}

	br.Failure()
	return "", lastErr
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) (string, bool, error) {
	reqCtx := ctx
	if f.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.opts.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedTarget) {
			return "", false, &FetchError{URL: rawURL, Err: err}
		}
		return "", true, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
		if rerr != nil {
			return "", true, &FetchError{URL: rawURL, Err: rerr}
		}
		return string(body), false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, &FetchError{URL: rawURL, Status: resp.StatusCode}
	default:
		// Remaining 4xx are terminal: the source is wrong, not busy.
		return "", false, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}
}

// sleepBackoff waits base * 2^(attempt-1) plus bounded jitter, or returns
// early when ctx is done.
func sleepBackoff(ctx context.Context, base, jitter time.Duration, attempt int) error {
	delay := base << (attempt - 1)
	if jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(jitter)))
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) breakerFor(source string) *breaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	br, ok := f.breakers[source]
	if !ok {
		br = newBreaker(f.opts.BreakerThreshold, f.opts.BreakerCooldown)
		f.breakers[source] = br
	}
	return br
}

// BreakerState exposes a source's breaker state, mainly for tests and the
// run summary.
func (f *Fetcher) BreakerState(source string) BreakerState {
	return f.breakerFor(source).State()
}

// ConsecutiveFailures reports a source's current failure streak so the
// pruning collaborator can rewrite the sources file.
func (f *Fetcher) ConsecutiveFailures(source string) int {
	return f.breakerFor(source).Failures()
}
