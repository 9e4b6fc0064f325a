package analyzer

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
)

// ErrBreakerOpen is returned (wrapped) when the circuit breaker is open and
// a call is rejected without reaching the underlying adapter.
var ErrBreakerOpen = errors.New("analyzer: circuit breaker open")

// CircuitBreakerAdapter wraps another Adapter with a gobreaker circuit
// breaker, so a struggling upstream trips open after a run of transient
// failures instead of every in-flight item independently discovering the
// same outage. Opening the breaker never reclassifies an item's failure:
// a rejected call is still Transient and still consumes a retry, matching
// spec.md §4.5's per-item retry budget.
type CircuitBreakerAdapter struct {
	next    Adapter
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreakerAdapter wraps next with a breaker named for logging and
// metrics, tripping after consecutiveFailures transient failures in a row.
func NewCircuitBreakerAdapter(next Adapter, name string, consecutiveFailures uint32) *CircuitBreakerAdapter {
	settings := gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
	}
	return &CircuitBreakerAdapter{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (a *CircuitBreakerAdapter) Analyze(ctx context.Context, file FileRef, jobDescription string) ([]byte, Classification, error) {
	type outcome struct {
		result []byte
		class  Classification
		err    error
	}

	out, err := a.breaker.Execute(func() (interface{}, error) {
		result, class, callErr := a.next.Analyze(ctx, file, jobDescription)
		if callErr != nil && class == Transient {
			// only transient failures count against the breaker; a
			// permanent failure is this item's problem, not the
			// upstream's health. The error itself still travels back
			// to the caller via outcome.err either way.
			return outcome{result, class, callErr}, callErr
		}
		return outcome{result, class, callErr}, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, Transient, ErrBreakerOpen
		}
	}
	o := out.(outcome)
	return o.result, o.class, o.err
}
