package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	t.Run("single successful try", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 5, func(attempt int) error {
			runs++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, runs)
	})

	t.Run("success from the third time", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) error {
			runs++
			if attempt < 3 {
				return Error(errors.New("attempt failed"), attempt)
			}

			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, runs)
	})

	t.Run("fails when attempt limit is exhausted", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) error {
			runs++
			if attempt < 5 {
				return Error(errors.New("attempt failed"), attempt)
			}

			return nil
		})

		assert.Error(t, err)
		assert.True(t, pkgerrors.Is(err, ErrTooManyAttempts))
		assert.Contains(t, err.Error(), "attempt failed")
		assert.Equal(t, 4, runs)
	})

	t.Run("fails if not an instance of retry error is returned from callback", func(t *testing.T) {
		runs := 0

		err := Incremental(context.Background(), 2*time.Millisecond, 4, func(attempt int) error {
			runs++
			return errors.New("some error")
		})

		assert.Error(t, err)
		assert.Equal(t, 1, runs)
	})

	t.Run("the last attempt error is kept when attempts are exhausted", func(t *testing.T) {
		err := Incremental(context.Background(), time.Millisecond, 2, func(attempt int) error {
			return Error(errors.New("db is not ready"), attempt)
		})

		var exhausted *ExhaustedError
		assert.True(t, pkgerrors.As(err, &exhausted))
		assert.Equal(t, 2, exhausted.Attempts)

		var last *AttemptError
		assert.True(t, pkgerrors.As(err, &last))
		assert.Equal(t, 2, last.Attempt)
		assert.Equal(t, "too many retry attempts [2]: attempt [2]: db is not ready", err.Error())
	})

	t.Run("unrecoverable errors keep their cause", func(t *testing.T) {
		cause := errors.New("access denied")

		err := Incremental(context.Background(), time.Millisecond, 3, func(attempt int) error {
			return cause
		})

		assert.True(t, pkgerrors.Is(err, cause))
		assert.False(t, pkgerrors.Is(err, ErrTooManyAttempts))
		assert.Contains(t, err.Error(), "attempt [1] failed unrecoverably")
	})

	t.Run("a done context stops before the first attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		runs := 0
		err := Incremental(ctx, time.Second, 10, func(attempt int) error {
			runs++
			return nil
		})

		assert.True(t, pkgerrors.Is(err, context.Canceled))
		assert.Equal(t, 0, runs)
	})

	t.Run("a context done while waiting stops with the last failure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		runs := 0
		err := Incremental(ctx, time.Minute, 10, func(attempt int) error {
			runs++
			cancel()
			return Error(errors.New("db is not ready"), attempt)
		})

		assert.True(t, pkgerrors.Is(err, context.Canceled))
		assert.Contains(t, err.Error(), "last failure: attempt [1]: db is not ready")
		assert.Equal(t, 1, runs)
	})
}
