// Package limiter bounds the number of in-flight upstream requests across
// every caller in the process.
package limiter

import (
	"context"
	"sync/atomic"

	"citabot.app/internal/ports"
	"golang.org/x/sync/semaphore"
)

const DefaultCapacity = 2

type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	metrics  ports.MetricsRecorder
}

// New creates a limiter admitting at most capacity concurrent holders
func New(capacity int, metrics ports.MetricsRecorder) *Limiter {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		metrics:  metrics,
	}
}

// Acquire blocks until a permit is available or ctx is done
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inFlight.Add(1)
	if l.metrics != nil {
		l.metrics.TrackUpstreamInFlight(1)
	}
	return nil
}

// Release returns a permit obtained with Acquire
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	if l.metrics != nil {
		l.metrics.TrackUpstreamInFlight(-1)
	}
	l.sem.Release(1)
}

// Do runs fn while holding a permit
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

func (l *Limiter) Capacity() int {
	return l.capacity
}

func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}
