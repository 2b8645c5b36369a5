package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdmitOncePerFingerprint(t *testing.T) {
	f := New()

	assert.True(t, f.Admit("fp-1"))
	assert.False(t, f.Admit("fp-1"))
	assert.True(t, f.Admit("fp-2"))
	assert.Equal(t, 2, f.Len())
}

func TestAdmitConcurrentExactlyOnce(t *testing.T) {
	f := New()

	const goroutines = 100
	var admitted int64
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Admit("same-fp") {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), admitted)
}

func TestAdmitConcurrentDistinctFingerprints(t *testing.T) {
	f := New()

	const n = 64
	var admitted int64
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every fingerprint raced by two goroutines.
			fp := fmt.Sprintf("fp-%d", i/2)
			if f.Admit(fp) {
				atomic.AddInt64(&admitted, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(n/2), admitted)
	assert.Equal(t, n/2, f.Len())
}
