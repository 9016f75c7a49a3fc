package pacer

import (
	"context"
	"sync"
	"time"

	"WhiskeyIndex/internal/ports"
)

// Pacer enforces a minimum delay between consecutive calls to Wait.
type Pacer struct {
	delay time.Duration
	mu    sync.Mutex
	last  time.Time
}

var _ ports.Pacer = (*Pacer)(nil)

// New builds a pacer; a non-positive delay disables pacing.
func New(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Wait blocks until delay has passed since the previous call returned, or
// until ctx is done. The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.delay > 0 && !p.last.IsZero() {
		if wait := p.delay - time.Since(p.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	p.last = time.Now()
	return nil
}
