package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAdapter struct {
	result []byte
	class  Classification
	err    error
}

func (s *scriptedAdapter) Analyze(ctx context.Context, file FileRef, jobDescription string) ([]byte, Classification, error) {
	return s.result, s.class, s.err
}

func TestCircuitBreakerAdapter_PermanentFailurePropagatesError(t *testing.T) {
	cause := errors.New("malformed pdf")
	inner := &scriptedAdapter{class: Permanent, err: cause}
	breaker := NewCircuitBreakerAdapter(inner, "test", 5)

	_, class, err := breaker.Analyze(context.Background(), FileRef{}, "job description")
	require.Error(t, err)
	assert.Equal(t, Permanent, class)
	assert.ErrorIs(t, err, cause)
}

func TestCircuitBreakerAdapter_TransientFailurePropagatesError(t *testing.T) {
	cause := errors.New("rate limited")
	inner := &scriptedAdapter{class: Transient, err: cause}
	breaker := NewCircuitBreakerAdapter(inner, "test", 5)

	_, class, err := breaker.Analyze(context.Background(), FileRef{}, "job description")
	require.Error(t, err)
	assert.Equal(t, Transient, class)
	assert.ErrorIs(t, err, cause)
}

func TestCircuitBreakerAdapter_TripsOpenAfterConsecutiveTransientFailures(t *testing.T) {
	inner := &scriptedAdapter{class: Transient, err: errors.New("upstream down")}
	breaker := NewCircuitBreakerAdapter(inner, "test", 2)

	_, _, err := breaker.Analyze(context.Background(), FileRef{}, "job")
	require.Error(t, err)
	_, _, err = breaker.Analyze(context.Background(), FileRef{}, "job")
	require.Error(t, err)

	_, class, err := breaker.Analyze(context.Background(), FileRef{}, "job")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, Transient, class)
}

func TestCircuitBreakerAdapter_SuccessPassesThrough(t *testing.T) {
	inner := &scriptedAdapter{result: []byte("ok"), class: Success}
	breaker := NewCircuitBreakerAdapter(inner, "test", 5)

	result, class, err := breaker.Analyze(context.Background(), FileRef{}, "job")
	require.NoError(t, err)
	assert.Equal(t, Success, class)
	assert.Equal(t, []byte("ok"), result)
}
