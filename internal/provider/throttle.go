package provider

import (
	"context"
	"time"
)

// Throttler enforces a minimum interval between outbound requests for one
// credential, keeping the sync under the provider's requests-per-minute
// ceiling (150 req/min -> 400ms interval).
//
// It is NOT a queue. Requests are already serialized per tenant within one
// orchestrator pass, so a single-current-caller assumption is sufficient.
type Throttler struct {
	interval time.Duration
	last     time.Time

	// Injected for tests; defaults to time.Now / time.Sleep.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottler creates a throttler from the provider's published rate limit.
// requestsPerMinute <= 0 disables throttling.
func NewThrottler(requestsPerMinute int) *Throttler {
	var interval time.Duration
	if requestsPerMinute > 0 {
		interval = time.Minute / time.Duration(requestsPerMinute)
	}
	return &Throttler{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous call, then records the current time as the last request time.
// Returns early with the context's error if the context is cancelled.
func (t *Throttler) Wait(ctx context.Context) error {
	if t.interval > 0 && !t.last.IsZero() {
		elapsed := t.now().Sub(t.last)
		if wait := t.interval - elapsed; wait > 0 {
			if err := t.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	t.last = t.now()
	return nil
}

// Interval returns the configured minimum inter-request interval.
func (t *Throttler) Interval() time.Duration {
	return t.interval
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
