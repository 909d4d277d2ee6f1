package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// providerRequestsPerMinute is used when llm.rate_limit is unset. The numbers sit under
// each API's free-tier request quota.
var providerRequestsPerMinute = map[string]int{
	"openai":    60,
	"anthropic": 50,
	"gemini":    15,
}

// throttle spaces extraction calls so a busy session stays inside the provider quota.
// Tokens are earned from elapsed time, so nothing runs in the background.
type throttle struct {
	now      func() time.Time
	last     time.Time
	provider string
	interval time.Duration
	capacity float64
	tokens   float64
	mu       sync.Mutex
}

// newThrottle returns the throttle for provider. A positive perMinute overrides the
// provider quota, a negative one turns throttling off. A nil throttle never blocks.
func newThrottle(provider string, perMinute int) *throttle {
	if perMinute == 0 {
		perMinute = providerRequestsPerMinute[provider]
	}
	if perMinute <= 0 {
		return nil
	}
	now := time.Now
	return &throttle{
		now:      now,
		last:     now(),
		provider: provider,
		interval: time.Minute / time.Duration(perMinute),
		capacity: float64(perMinute),
		tokens:   float64(perMinute),
	}
}

// reserve takes a token and reports how long the caller has to wait before it is usable.
func (t *throttle) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	earned := float64(now.Sub(t.last)) / float64(t.interval)
	t.tokens = min(t.capacity, t.tokens+earned)
	t.last = now

	t.tokens--
	if t.tokens >= 0 {
		return 0
	}
	return time.Duration(-t.tokens * float64(t.interval))
}

func (t *throttle) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = min(t.capacity, t.tokens+1)
}

// wait blocks until a request may be sent or ctx ends.
func (t *throttle) wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	delay := t.reserve()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		t.release()
		return fmt.Errorf("waiting for %s request quota: %w", t.provider, ctx.Err())
	case <-timer.C:
		return nil
	}
}
