package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var ErrTooManyAttempts = errors.New("too many retry attempts")

type Callable func(attempt int) error

// AttemptError is a recoverable failure of one attempt. Returning anything
// else from a Callable stops the retry loop at once.
type AttemptError struct {
	Attempt int
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt [%d]: %s", e.Attempt, e.Err.Error())
}

func (e *AttemptError) Cause() error {
	return e.Err
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every attempt failed. It matches
// ErrTooManyAttempts and unwraps to the last AttemptError.
type ExhaustedError struct {
	Attempts int
	Last     *AttemptError
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s [%d]: %s", ErrTooManyAttempts.Error(), e.Attempts, e.Last.Error())
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Error marks err as recoverable so the callable is tried again.
func Error(err error, attempt int) error {
	if err == nil {
		return nil
	}
	return &AttemptError{Attempt: attempt, Err: err}
}

type Attempts interface {
	Next() (time.Duration, bool)
	Current() int
}

// Start calls cb until it succeeds, fails unrecoverably, runs out of attempts
// or ctx is done. The context is checked before every attempt and while
// waiting for the next one.
func Start(ctx context.Context, a Attempts, cb Callable) error {
	var last *AttemptError

	for {
		if err := ctx.Err(); err != nil {
			return stopped(err, a.Current(), last)
		}

		err := cb(a.Current())
		if err == nil {
			return nil
		}

		var ae *AttemptError
		if !errors.As(err, &ae) {
			return errors.Wrapf(err, "attempt [%d] failed unrecoverably", a.Current())
		}
		last = ae

		next, stop := a.Next()
		if stop {
			return &ExhaustedError{Attempts: ae.Attempt, Last: ae}
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return stopped(ctx.Err(), a.Current(), last)
		case <-timer.C:
		}
	}
}

func stopped(err error, attempt int, last *AttemptError) error {
	if last == nil {
		return errors.Wrapf(err, "retry stopped before attempt [%d]", attempt)
	}

	return errors.Wrapf(err, "retry stopped before attempt [%d], last failure: %s", attempt, last.Error())
}

func Incremental(ctx context.Context, step time.Duration, maxRetries int, cb Callable) error {
	return Start(ctx, IncrementalAttempts(step, maxRetries), cb)
}

// incrementalAttempts waits one more step after every failed attempt.
type incrementalAttempts struct {
	wait time.Duration
	step time.Duration
	max  int
	curr int
}

func (a *incrementalAttempts) Next() (time.Duration, bool) {
	if a.curr >= a.max {
		return 0, true
	}

	a.curr++
	a.wait += a.step

	return a.wait, false
}

func (a *incrementalAttempts) Current() int {
	return a.curr
}

func IncrementalAttempts(step time.Duration, max int) Attempts {
	return &incrementalAttempts{step: step, max: max, curr: 1}
}
