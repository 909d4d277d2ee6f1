package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUserError("Could not reach the assistant", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Could not reach the assistant: connection refused", err.Error())
	assert.Equal(t, "Could not reach the assistant", UserMessage(err))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	require.NoError(t, SetupLogger(slog.LevelInfo, "json", &buf))
	slog.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	assert.ErrorIs(t, SetupLogger(slog.LevelInfo, "xml", &buf), ErrInvalidConfig)
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		failWith     error
		maxAttempts  int
		wantAttempts int
		wantErr      error
	}{
		{name: "succeeds after transient failures", failures: 2, failWith: errors.New("transient"), maxAttempts: 5, wantAttempts: 3},
		{name: "permanent error stops at once", failures: 5, failWith: Permanent(errors.New("bad request")), maxAttempts: 5, wantAttempts: 1},
		{name: "gives up after max attempts", failures: 5, failWith: errors.New("down"), maxAttempts: 2, wantAttempts: 2, wantErr: ErrMaxRetries},
		{
			name:         "wrapped permanent error stops at once",
			failures:     5,
			failWith:     fmt.Errorf("write ledger: %w", Permanent(errors.New("forbidden"))),
			maxAttempts:  5,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := WithRetry(context.Background(), func(context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.failWith
				}
				return nil
			}, RetryOptions{MaxAttempts: tt.maxAttempts, InitialDelay: time.Millisecond})

			assert.Equal(t, tt.wantAttempts, attempts)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, tt.failWith)
			case tt.failures >= tt.wantAttempts:
				require.ErrorIs(t, err, tt.failWith)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestWithRetry_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetry(ctx, func(context.Context) error {
		return errors.New("down")
	}, RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryOptions_Pause(t *testing.T) {
	opts := RetryOptions{InitialDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, opts.Pause(1, errors.New("x")))
	assert.Equal(t, 2*time.Second, opts.Pause(2, errors.New("x")))
	assert.Equal(t, 4*time.Second, opts.Pause(3, errors.New("x")))
	assert.Equal(t, 5*time.Second, opts.Pause(4, errors.New("x")))
	assert.Equal(t, 5*time.Second, opts.Pause(1, fmt.Errorf("sheets: %w", ErrRateLimit)))
	assert.Equal(t, 100*time.Millisecond, RetryOptions{}.Pause(1, errors.New("x")))
}
