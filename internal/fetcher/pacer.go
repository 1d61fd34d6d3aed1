package fetcher

import (
	"context"
	"sync"
	"time"
)

// pacer spaces out request starts. Wait returns the release instant, and
// any two release instants handed out by the same pacer are at least
// delay apart.
type pacer struct {
	delay time.Duration

	mu   sync.Mutex
	last time.Time
}

func newPacer(delay time.Duration) *pacer {
	return &pacer{delay: delay}
}

// Wait blocks until the caller may start its request.
// Callers are served in lock order; the lock is held while waiting so the
// next caller measures from this caller's actual release.
func (p *pacer) Wait(ctx context.Context) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	if p.delay > 0 && !p.last.IsZero() {
		if wait := time.Until(p.last.Add(p.delay)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return time.Time{}, ctx.Err()
			case <-timer.C:
			}
		}
	}

	now := time.Now()
	p.last = now
	return now, nil
}
