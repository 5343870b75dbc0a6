package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/logicflow/engine/pkg/logger"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process memory. Counters are not shared
// between replicas; use RedisLimiter when running more than one.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*window

	stop chan struct{}
	done chan struct{}
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter allows limit hits per key in every window.
func NewMemoryLimiter(limit int, every time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  every,
		now:     time.Now,
		entries: map[string]*window{},
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.entries[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.entries[key] = w
	}
	if w.count >= l.limit {
		return Result{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: w.resetAt}, nil
	}
	w.count++
	return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count, ResetAt: w.resetAt}, nil
}

// Start runs the eviction sweep every interval until Stop.
func (l *MemoryLimiter) Start(interval time.Duration) {
	l.mu.Lock()
	if l.stop != nil {
		l.mu.Unlock()
		return
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if n := l.sweep(); n > 0 {
					logger.L().Debug("rate limit windows evicted", zap.Int("count", n))
				}
			}
		}
	}()
}

// Stop ends the sweep started by Start and waits for it to exit.
func (l *MemoryLimiter) Stop() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (l *MemoryLimiter) sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, w := range l.entries {
		if now.After(w.resetAt) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
