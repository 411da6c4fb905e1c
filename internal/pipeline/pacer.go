package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Pacer spaces generation calls at least delay apart. Only rows that reach
// the generation step wait on it.
type Pacer struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewPacer creates a pacer. A zero delay never waits.
func NewPacer(delay time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1), delay: delay}
}

// Wait blocks until the next generation call may start.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "pipeline: pacer wait")
	}
	return nil
}

// Delay returns the configured spacing.
func (p *Pacer) Delay() time.Duration { return p.delay }
