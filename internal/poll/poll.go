// Package poll provides a bounded retry loop for resources that are observed
// by repeated fetching until they reach a terminal state.
package poll

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a polling loop
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper is the default Sleeper backed by a timer
func ContextSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExhaustedError is returned when MaxAttempts fetches never satisfied the predicate
type ExhaustedError[T any] struct {
	Attempts int
	Last     T
}

func (e *ExhaustedError[T]) Error() string {
	return fmt.Sprintf("polling gave up after %d attempts", e.Attempts)
}

// Poller runs Until with an injectable sleeper
type Poller struct {
	Policy Policy
	Sleep  Sleeper
}

// New creates a Poller that sleeps on real time
func New(policy Policy) *Poller {
	return &Poller{Policy: policy, Sleep: ContextSleeper}
}

// Until calls fetch up to MaxAttempts times, sleeping Interval between calls,
// and returns the first value for which done reports true. A fetch error ends
// the loop immediately.
func Until[T any](ctx context.Context, p *Poller, fetch func(context.Context) (T, error), done func(T) bool) (T, error) {
	var last T
	if p.Policy.MaxAttempts < 1 {
		return last, fmt.Errorf("poll policy needs at least one attempt, got %d", p.Policy.MaxAttempts)
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleeper
	}

	for attempt := 1; attempt <= p.Policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Policy.Interval); err != nil {
				return last, err
			}
		}

		value, err := fetch(ctx)
		if err != nil {
			return last, err
		}
		last = value

		if done(value) {
			return value, nil
		}
	}

	return last, &ExhaustedError[T]{Attempts: p.Policy.MaxAttempts, Last: last}
}
