package ratelimit

import (
	"sync"

	"solace-api/internal/metrics"
)

// Admission caps how many streaming responses one client may hold open at
// once, independent of the request-count throttle. A client can be well under
// its per-minute quota and still be hogging N parallel long streams.
type Admission struct {
	mu       sync.Mutex
	inflight map[string]int
}

func NewAdmission() *Admission {
	return &Admission{inflight: make(map[string]int)}
}

// Ticket represents one held slot. Release is safe to call more than once and
// from any exit path; the counter is decremented exactly once per ticket.
type Ticket struct {
	a    *Admission
	key  string
	once sync.Once
}

// TryAcquire reads and increments the in-flight count for key atomically.
// Denied requests cost nothing: the check happens before any upstream work.
func (a *Admission) TryAcquire(key string, maxConcurrent int) (*Ticket, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if maxConcurrent > 0 && a.inflight[key] >= maxConcurrent {
		return nil, false
	}
	a.inflight[key]++
	metrics.InflightStreams.WithLabelValues(key).Set(float64(a.inflight[key]))
	return &Ticket{a: a, key: key}, true
}

func (t *Ticket) Release() {
	t.once.Do(func() {
		t.a.mu.Lock()
		defer t.a.mu.Unlock()
		n := t.a.inflight[t.key] - 1
		if n <= 0 {
			delete(t.a.inflight, t.key)
			n = 0
		} else {
			t.a.inflight[t.key] = n
		}
		metrics.InflightStreams.WithLabelValues(t.key).Set(float64(n))
	})
}

// InFlight reports the current count for key.
func (a *Admission) InFlight(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight[key]
}
