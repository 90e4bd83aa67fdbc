package source

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userfrosting/migrator/executor"
	"github.com/userfrosting/migrator/internal/logger"
	"github.com/userfrosting/migrator/migration"
)

func writeFiles(t *testing.T, folder string, files map[string]string) {
	t.Helper()

	for name, contents := range files {
		if err := ioutil.WriteFile(filepath.Join(folder, name), []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func Test_SingleMigrationCanBeReadFromLocalFile(t *testing.T) {
	folder := t.TempDir()
	writeFiles(t, folder, map[string]string{
		"add_email_to_users.up.sql": "-- depends: create_users\n" +
			"-- adds the column\n" +
			"ALTER TABLE users\n  ADD COLUMN email VARCHAR(255);\n" +
			"CREATE INDEX users_email ON users (email);\n",
		"add_email_to_users.down.sql": "ALTER TABLE users DROP COLUMN email;",
	})

	lf := NewLocalFolder(folder, &logger.NullLogger{})

	m, err := lf.readOne("add_email_to_users", true)
	require.NoError(t, err)
	assert.Equal(t, "add_email_to_users", m.Name())
	assert.Equal(t, []string{"create_users"}, m.Dependencies())
	assert.Equal(t, []string{
		"ALTER TABLE users\nADD COLUMN email VARCHAR(255);",
		"CREATE INDEX users_email ON users (email);",
	}, m.Migrate)
	assert.Equal(t, []string{"ALTER TABLE users DROP COLUMN email;"}, m.Rollback)
}

func Test_ConvertLocalFolder(t *testing.T) {
	folder := t.TempDir()
	writeFiles(t, folder, map[string]string{
		"create_users.up.sql":         "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"create_users.down.sql":       "DROP TABLE users;",
		"create_groups.up.sql":        "CREATE TABLE groups (id INTEGER PRIMARY KEY);",
		"create_user_groups.up.sql":   "-- depends: create_users, create_groups\nCREATE TABLE user_groups (user_id INTEGER, group_id INTEGER);",
		"create_user_groups.down.sql": "DROP TABLE user_groups;",
		"README.md":                   "not a migration",
	})

	lf := NewLocalFolder(folder, nil)
	require.True(t, lf.IsValid())

	t.Run("all migrations can be read from local folder", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		migrations, err := lf.Select(ctx)
		require.NoError(t, err)
		require.Len(t, migrations, 3)

		assert.Equal(t, "create_groups", migrations[0].Name())
		assert.Empty(t, migrations[0].Rollback)
		assert.Equal(t, "create_user_groups", migrations[1].Name())
		assert.Equal(t, []string{"create_users", "create_groups"}, migrations[1].Dependencies())
		assert.Equal(t, "create_users", migrations[2].Name())
		assert.Equal(t, []string{"DROP TABLE users;"}, migrations[2].Rollback)
	})

	t.Run("a registry keeps the file name order", func(t *testing.T) {
		r, err := Registry(context.Background(), lf)
		require.NoError(t, err)
		assert.Equal(t, []string{"create_groups", "create_user_groups", "create_users"}, r.Names())
	})
}

func Test_InvalidFolders(t *testing.T) {
	t.Run("a missing folder is not valid", func(t *testing.T) {
		lf := NewLocalFolder(filepath.Join(t.TempDir(), "missing"), nil)
		assert.False(t, lf.IsValid())

		_, err := lf.Select(context.Background())
		assert.Error(t, err)
	})

	t.Run("a down file without its up file is rejected", func(t *testing.T) {
		folder := t.TempDir()
		writeFiles(t, folder, map[string]string{"orphan.down.sql": "DROP TABLE orphan;"})

		_, err := NewLocalFolder(folder, nil).Select(context.Background())
		assert.True(t, errors.Is(err, ErrMissingUpFile))
	})

	t.Run("an sql file without direction is rejected", func(t *testing.T) {
		folder := t.TempDir()
		writeFiles(t, folder, map[string]string{"create_users.sql": "CREATE TABLE users (id INTEGER);"})

		_, err := NewLocalFolder(folder, nil).Select(context.Background())
		assert.True(t, errors.Is(err, ErrNotAMigrationFile))
	})
}

func Test_TransactionHeader(t *testing.T) {
	folder := t.TempDir()
	writeFiles(t, folder, map[string]string{
		"seed_users.up.sql": "-- depends: create_users\n-- transaction: serializable\nINSERT INTO users (id) VALUES (1);",
		"plain.up.sql":      "SELECT 1;",
	})

	migrations, err := NewLocalFolder(folder, nil).Select(context.Background())
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.False(t, migrations[0].Transactional())
	assert.True(t, migrations[1].Transactional())

	t.Run("unknown isolation levels are rejected", func(t *testing.T) {
		writeFiles(t, folder, map[string]string{"broken.up.sql": "-- transaction: snapshot\nSELECT 1;"})

		_, err := NewLocalFolder(folder, nil).Select(context.Background())
		assert.True(t, errors.Is(err, ErrUnknownIsolationLevel))
	})
}

func Test_MigrationFilesCanBeCreated(t *testing.T) {
	folder := t.TempDir()
	lf := NewLocalFolder(folder, nil)

	m, err := lf.Create("add_email_to_users", []string{"create_users"}, true)
	require.NoError(t, err)
	assert.Equal(t, "add_email_to_users", m.Name())
	assert.True(t, lf.AlreadyExists("add_email_to_users"))

	migrations, err := lf.Select(context.Background())
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, []string{"create_users"}, migrations[0].Dependencies())
	assert.Empty(t, migrations[0].Migrate)

	_, err = lf.Create("add_email_to_users", nil, false)
	assert.True(t, errors.Is(err, migration.ErrDuplicateMigration))

	_, err = lf.Create("bad name", nil, false)
	assert.True(t, errors.Is(err, migration.ErrInvalidMigrationName))
}

func Test_parseScript(t *testing.T) {
	tt := []struct {
		name          string
		contents      string
		dependencies  []string
		transactional bool
		isolation     executor.ISO
		statements    []string
	}{
		{
			name:     "empty script",
			contents: "\n\n",
		},
		{
			name:         "headers only",
			contents:     "-- depends: a\n--depends: b",
			dependencies: []string{"a", "b"},
		},
		{
			name:       "statement without trailing semicolon",
			contents:   "SELECT 1;\nSELECT 2",
			statements: []string{"SELECT 1;", "SELECT 2"},
		},
		{
			name:          "transaction with the default isolation",
			contents:      "-- transaction\n-- transaction log entries\nSELECT 1;",
			transactional: true,
			isolation:     executor.Default,
			statements:    []string{"SELECT 1;"},
		},
		{
			name:          "transaction with an isolation level",
			contents:      "-- depends: a\n-- transaction: Read Committed\nSELECT 1;",
			dependencies:  []string{"a"},
			transactional: true,
			isolation:     executor.ReadCommitted,
			statements:    []string{"SELECT 1;"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			h, statements, err := parseScript(tc.contents)
			require.NoError(t, err)
			assert.Equal(t, tc.dependencies, h.dependencies)
			assert.Equal(t, tc.transactional, h.transactional)
			assert.Equal(t, tc.isolation, h.isolation)
			assert.Equal(t, tc.statements, statements)
		})
	}
}
