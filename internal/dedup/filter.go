package dedup

import "sync"

// Filter is the single mandatory mutual-exclusion point of the pipeline:
// concurrent fetchers all funnel their fingerprints through Admit.
type Filter struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func New() *Filter {
	return &Filter{
		seen: make(map[string]struct{}),
	}
}

// Admit reports whether fp is new. It returns true exactly once per
// fingerprint across the whole run no matter how many goroutines race on
// it; the lookup and insert happen under one lock so two callers can never
// both pass the "already seen" check.
func (f *Filter) Admit(fp string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.seen[fp]; exists {
		return false
	}
	f.seen[fp] = struct{}{}
	return true
}

// Len is the number of unique fingerprints admitted so far.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
