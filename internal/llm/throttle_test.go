package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestThrottle(t *testing.T, provider string, perMinute int) (*throttle, *manualClock) {
	t.Helper()
	th := newThrottle(provider, perMinute)
	require.NotNil(t, th)
	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	th.now = clock.Now
	th.last = clock.now
	return th, clock
}

func TestNewThrottle(t *testing.T) {
	tests := []struct {
		name         string
		provider     string
		perMinute    int
		wantNil      bool
		wantCapacity float64
		wantInterval time.Duration
	}{
		{name: "openai quota", provider: "openai", wantCapacity: 60, wantInterval: time.Second},
		{name: "anthropic quota", provider: "anthropic", wantCapacity: 50, wantInterval: 1200 * time.Millisecond},
		{name: "gemini quota", provider: "gemini", wantCapacity: 15, wantInterval: 4 * time.Second},
		{name: "configured rate wins", provider: "gemini", perMinute: 120, wantCapacity: 120, wantInterval: 500 * time.Millisecond},
		{name: "negative rate disables", provider: "openai", perMinute: -1, wantNil: true},
		{name: "unknown provider is unthrottled", provider: "local", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newThrottle(tt.provider, tt.perMinute)
			if tt.wantNil {
				assert.Nil(t, th)
				require.NoError(t, th.wait(context.Background()))
				return
			}
			require.NotNil(t, th)
			assert.Equal(t, tt.wantCapacity, th.capacity)
			assert.Equal(t, tt.wantInterval, th.interval)
		})
	}
}

func TestThrottle_Reserve(t *testing.T) {
	th, clock := newTestThrottle(t, "gemini", 0)

	for range 15 {
		assert.Zero(t, th.reserve())
	}
	assert.Equal(t, 4*time.Second, th.reserve())

	clock.advance(8 * time.Second)
	assert.Zero(t, th.reserve())
	assert.Equal(t, 4*time.Second, th.reserve())
}

func TestThrottle_RefillIsCapped(t *testing.T) {
	th, clock := newTestThrottle(t, "openai", 2)

	clock.advance(time.Hour)
	assert.Zero(t, th.reserve())
	assert.Zero(t, th.reserve())
	assert.Positive(t, th.reserve())
}

func TestThrottle_WaitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	th, _ := newTestThrottle(t, "gemini", 1)
	require.NoError(t, th.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := th.wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "gemini")

	// The cancelled caller gives its token back.
	assert.InDelta(t, 0, th.tokens, 1e-9)
}

func TestThrottle_WaitSleepsUntilTokenIsEarned(t *testing.T) {
	th := newThrottle("openai", 6000)
	require.NotNil(t, th)
	for range 6000 {
		th.reserve()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, th.wait(ctx))
	assert.Less(t, time.Since(start), time.Second)
}
