// Package ratelimit holds the per-client throttles: a fixed-window request
// counter and a concurrent stream cap. State is local to one process; when the
// gateway is scaled horizontally each instance enforces its own share.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

type Bucket string

const (
	BucketDefault Bucket = "default"
	BucketAPI     Bucket = "api"
	BucketChat    Bucket = "chat"
)

type BucketConfig struct {
	Max    int
	Window time.Duration
}

type Config struct {
	// Disabled turns the limiter into a pass-through. Local dev only.
	Disabled bool
	Buckets  map[Bucket]BucketConfig
}

func DefaultConfig() Config {
	return Config{
		Buckets: map[Bucket]BucketConfig{
			BucketDefault: {Max: 60, Window: time.Minute},
			BucketAPI:     {Max: 120, Window: time.Minute},
			BucketChat:    {Max: 30, Window: time.Minute},
		},
	}
}

type Result struct {
	Allowed bool
	// RetryAfter is seconds until the window resets. Only set on denial.
	RetryAfter int
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per (clientKey, bucket) inside a fixed window.
// Check never errors; it only allows or denies.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(l.sweepInterval())
	return l
}

// Check looks up and mutates the window for (clientKey, bucket) in a single
// critical section, so two overlapping requests from one client can never
// both observe count = max-1 and both be admitted.
func (l *Limiter) Check(clientKey string, bucket Bucket) Result {
	if l.cfg.Disabled {
		return Result{Allowed: true}
	}
	bc, ok := l.cfg.Buckets[bucket]
	if !ok {
		bc = l.cfg.Buckets[BucketDefault]
	}
	if bc.Max <= 0 || bc.Window <= 0 {
		return Result{Allowed: true}
	}

	key := clientKey + ":" + string(bucket)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		// Expired entries behave identically to absent ones.
		l.windows[key] = &window{count: 1, resetAt: now.Add(bc.Window)}
		return Result{Allowed: true}
	}
	if w.count < bc.Max {
		w.count++
		return Result{Allowed: true}
	}
	return Result{
		Allowed:    false,
		RetryAfter: int(math.Ceil(w.resetAt.Sub(now).Seconds())),
	}
}

// Close stops the background sweeper.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepInterval() time.Duration {
	interval := time.Minute
	for _, bc := range l.cfg.Buckets {
		if bc.Window > interval {
			interval = bc.Window
		}
	}
	return interval
}

// sweep drops expired windows so many short-lived client keys cannot grow the
// map without bound. Correctness does not depend on it.
func (l *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweepExpired(l.now())
		}
	}
}

func (l *Limiter) sweepExpired(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
