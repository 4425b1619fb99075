package geocode

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetryPolicy_SucceedsFirstTry(t *testing.T) {
	var calls int
	result, err := fastRetryPolicy().do(context.Background(), "census", func(context.Context) (*Result, error) {
		calls++
		return &Result{Matched: true}, nil
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RetriesServerErrors(t *testing.T) {
	var calls int
	result, err := fastRetryPolicy().do(context.Background(), "census", func(context.Context) (*Result, error) {
		calls++
		if calls < 3 {
			return nil, &statusError{provider: "census", code: http.StatusBadGateway}
		}
		return &Result{Matched: true}, nil
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_StopsAfterMaxAttempts(t *testing.T) {
	var calls int
	_, err := fastRetryPolicy().do(context.Background(), "google", func(context.Context) (*Result, error) {
		calls++
		return nil, &statusError{provider: "google", code: http.StatusTooManyRequests}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_PermanentErrorsFailFast(t *testing.T) {
	var calls int
	_, err := fastRetryPolicy().do(context.Background(), "census", func(context.Context) (*Result, error) {
		calls++
		return nil, eris.New("geocode: census parse response")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "parse failures should not retry")
}

func TestRetryPolicy_ClientStatusFailsFast(t *testing.T) {
	var calls int
	_, err := fastRetryPolicy().do(context.Background(), "census", func(context.Context) (*Result, error) {
		calls++
		return nil, &statusError{provider: "census", code: http.StatusBadRequest}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := fastRetryPolicy().do(ctx, "census", func(context.Context) (*Result, error) {
		calls++
		cancel()
		return nil, &statusError{provider: "census", code: http.StatusServiceUnavailable}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"throttled", &statusError{provider: "census", code: 429}, true},
		{"server error", &statusError{provider: "google", code: 503}, true},
		{"bad request", &statusError{provider: "census", code: 400}, false},
		{"wrapped status", eris.Wrap(&statusError{provider: "census", code: 500}, "geocode: census request"), true},
		{"plain error", eris.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}
