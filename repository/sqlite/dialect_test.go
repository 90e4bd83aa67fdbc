package sqlite

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userfrosting/migrator/repository"
	"github.com/userfrosting/migrator/repository/repositorytest"
)

func newRepository(t *testing.T) repository.Repository {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	r, err := repository.NewSQL(db, NewDialect(""))
	require.NoError(t, err)

	return r
}

func TestSqliteRepository(t *testing.T) {
	repositorytest.Behaves(t, newRepository)
}

func TestNewDialect(t *testing.T) {
	t.Run("default table", func(t *testing.T) {
		d := NewDialect("")
		assert.Equal(t, "migrations", d.Table())
		assert.Contains(t, d.CreateQuery(), "CREATE TABLE IF NOT EXISTS migrations")
	})

	t.Run("custom table", func(t *testing.T) {
		d := NewDialect("schema_log")
		q, args := d.HasTableQuery()

		assert.Equal(t, "DROP TABLE IF EXISTS schema_log;", d.DropQuery())
		assert.Contains(t, q, "sqlite_master")
		assert.Equal(t, []interface{}{"schema_log"}, args)
	})

	t.Run("invalid table names are rejected by the repository", func(t *testing.T) {
		db, err := sqlx.Open("sqlite3", ":memory:")
		require.NoError(t, err)
		defer db.Close()

		_, err = repository.NewSQL(db, NewDialect("migrations; DROP TABLE users"))
		assert.True(t, errors.Is(err, repository.ErrInvalidTableName))
	})
}

func TestSqliteRepositorySharesTheConnection(t *testing.T) {
	ctx := context.Background()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	r, err := repository.NewSQL(db, NewDialect("migrations"))
	require.NoError(t, err)

	require.NoError(t, r.CreateIfMissing(ctx))
	require.NoError(t, r.Log(ctx, "create_users", 1))

	var rows []struct {
		Migration string `db:"migration"`
		Batch     int    `db:"batch"`
	}
	require.NoError(t, db.Select(&rows, "SELECT migration, batch FROM migrations"))
	require.Len(t, rows, 1)
	assert.Equal(t, "create_users", rows[0].Migration)
	assert.Equal(t, 1, rows[0].Batch)
}
