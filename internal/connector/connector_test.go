package connector

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrying(t *testing.T) {
	t.Run("it connects to a live database", func(t *testing.T) {
		db, err := sqlx.Open("sqlite3", ":memory:")
		require.NoError(t, err)

		c := NewRetrying(db, nil)

		got, err := c.Connect(context.Background())
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.NoError(t, c.Close())
	})

	t.Run("it gives up when the context is done", func(t *testing.T) {
		db, err := sqlx.Open("sqlite3", ":memory:")
		require.NoError(t, err)
		defer db.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := NewRetrying(db, &Options{
			MaxAttempts: 3,
			MaxTimeout:  time.Second,
			RetryStep:   time.Millisecond,
		})

		_, err = c.Connect(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Contains(t, err.Error(), "could not establish DB connection")
	})
}
