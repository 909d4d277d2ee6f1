package cli

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestSpinner_StopReleasesGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := StartSpinner(&syncBuffer{}, "thinking")
	time.Sleep(3 * spinnerInterval)
	s.Stop()
	s.Stop()
}
