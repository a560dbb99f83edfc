package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out consecutive requests against the same origin
type Pacer interface {
	// Wait blocks until the next request is allowed, or the context ends
	Wait(ctx context.Context) error
	// Reset clears the pacing state
	Reset()
}

// IntervalPacer enforces a randomized delay between consecutive requests,
// drawn uniformly from [min, max]. The jitter makes the request cadence
// look less mechanical to the far side.
type IntervalPacer struct {
	min      time.Duration
	max      time.Duration
	lastSent time.Time
	mu       sync.Mutex
}

// NewIntervalPacer creates a pacer with the given delay bounds. A max at
// or below min collapses to a fixed min delay.
func NewIntervalPacer(min, max time.Duration) *IntervalPacer {
	if max < min {
		max = min
	}
	return &IntervalPacer{min: min, max: max}
}

// Wait blocks until the randomized inter-request delay has elapsed since
// the previous request. The first call never blocks.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	var wait time.Duration
	if !p.lastSent.IsZero() {
		delay := p.min
		if span := p.max - p.min; span > 0 {
			delay += time.Duration(rand.Int63n(int64(span)))
		}
		elapsed := time.Since(p.lastSent)
		if elapsed < delay {
			wait = delay - elapsed
		}
	}
	p.lastSent = time.Now().Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears the last-request timestamp
func (p *IntervalPacer) Reset() {
	p.mu.Lock()
	p.lastSent = time.Time{}
	p.mu.Unlock()
}

// NopPacer never delays. Used in tests and for one-shot lookups.
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context) error { return ctx.Err() }
func (NopPacer) Reset()                         {}
