// Package repositorytest holds the behaviour every repository.Repository
// implementation must show. Implementation packages run it from their tests.
package repositorytest

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userfrosting/migrator/repository"
)

type Factory func(t *testing.T) repository.Repository

func Behaves(t *testing.T, newRepository Factory) {
	ctx := context.Background()

	t.Run("a fresh repository does not exist and reads as empty", func(t *testing.T) {
		r := newRepository(t)

		exists, err := r.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)

		records, err := r.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		last, err := r.LastBatchNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, last)
	})

	t.Run("create if missing is idempotent", func(t *testing.T) {
		r := newRepository(t)

		require.NoError(t, r.CreateIfMissing(ctx))
		require.NoError(t, r.CreateIfMissing(ctx))

		exists, err := r.Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)

		records, err := r.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("records are ordered by batch and then insertion", func(t *testing.T) {
		r := newRepository(t)
		require.NoError(t, r.CreateIfMissing(ctx))

		require.NoError(t, r.Log(ctx, "create_users", 1))
		require.NoError(t, r.Log(ctx, "create_groups", 1))
		require.NoError(t, r.Log(ctx, "add_email_to_users", 2))

		records, err := r.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, repository.Records{
			{Migration: "create_users", Batch: 1},
			{Migration: "create_groups", Batch: 1},
			{Migration: "add_email_to_users", Batch: 2},
		}, records)

		last, err := r.LastBatchNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, last)
	})

	t.Run("a migration can be logged only once", func(t *testing.T) {
		r := newRepository(t)
		require.NoError(t, r.CreateIfMissing(ctx))
		require.NoError(t, r.Log(ctx, "create_users", 1))

		err := r.Log(ctx, "create_users", 2)
		assert.True(t, errors.Is(err, repository.ErrAlreadyLogged))

		records, err := r.All(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("batches for rollback are the most recent distinct batches", func(t *testing.T) {
		r := newRepository(t)
		require.NoError(t, r.CreateIfMissing(ctx))
		require.NoError(t, r.Log(ctx, "a", 1))
		require.NoError(t, r.Log(ctx, "b", 2))
		require.NoError(t, r.Log(ctx, "c", 2))
		require.NoError(t, r.Log(ctx, "d", 3))

		batches, err := r.BatchesForRollback(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{3}, batches)

		batches, err = r.BatchesForRollback(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2}, batches)

		batches, err = r.BatchesForRollback(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2, 1}, batches)

		_, err = r.BatchesForRollback(ctx, 0)
		assert.True(t, errors.Is(err, repository.ErrInvalidSteps))
	})

	t.Run("remove deletes the record regardless of batch", func(t *testing.T) {
		r := newRepository(t)
		require.NoError(t, r.CreateIfMissing(ctx))
		require.NoError(t, r.Log(ctx, "a", 1))
		require.NoError(t, r.Log(ctx, "b", 4))

		require.NoError(t, r.Remove(ctx, "b"))
		require.NoError(t, r.Remove(ctx, "unknown"))

		records, err := r.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, records.Names())
	})

	t.Run("delete refuses a non empty repository and drops an empty one", func(t *testing.T) {
		r := newRepository(t)
		require.NoError(t, r.CreateIfMissing(ctx))
		require.NoError(t, r.Log(ctx, "a", 1))

		err := r.Delete(ctx)
		assert.True(t, errors.Is(err, repository.ErrRepositoryNotEmpty))

		exists, err := r.Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, r.Remove(ctx, "a"))
		require.NoError(t, r.Delete(ctx))

		exists, err = r.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
