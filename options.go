package migrator

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/userfrosting/migrator/executor"
	"github.com/userfrosting/migrator/internal/connector"
	"github.com/userfrosting/migrator/internal/logger"
	"github.com/userfrosting/migrator/migration"
	"github.com/userfrosting/migrator/repository"
	"github.com/userfrosting/migrator/repository/mysql"
	"github.com/userfrosting/migrator/repository/postgres"
	"github.com/userfrosting/migrator/repository/sqlite"
)

type OptionFunc func(*Migrator) error

// Confirmer is asked before a migrate, rollback or reset runs its plan.
// Returning false aborts the call before anything is executed.
type Confirmer func(operation string, migrations []string) bool

type (
	SQLOptions struct {
		MigrationsTable string
		Charset         string
	}

	SQLOptionFunc func(*SQLOptions, *connector.Options)
)

func UseRegistry(r *migration.Registry) OptionFunc {
	return func(m *Migrator) error {
		m.registry = r
		return nil
	}
}

func UseMigrations(ms ...migration.Migration) OptionFunc {
	return func(m *Migrator) error {
		if m.registry == nil {
			m.registry = &migration.Registry{}
		}

		return m.registry.Register(ms...)
	}
}

func UseRepository(r repository.Repository) OptionFunc {
	return func(m *Migrator) error {
		m.repository = r
		return nil
	}
}

func UseExecutor(ex executor.Executor) OptionFunc {
	return func(m *Migrator) error {
		m.executor = ex
		return nil
	}
}

func UseConfirmer(c Confirmer) OptionFunc {
	return func(m *Migrator) error {
		m.confirm = c
		return nil
	}
}

func UseColorLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewColorLogger(p, printSql, printDebug)
		return nil
	}
}

func UseLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewBWLogger(p, printSql, printDebug)
		return nil
	}
}

// UseSQLite, UseMySQL and UsePostgres wire the repository and the executor to
// the same connection. The migrator closes db when its closer is called.
func UseSQLite(db *sql.DB, options ...SQLOptionFunc) OptionFunc {
	return useSQL(db, "sqlite3", options, func(o *SQLOptions) repository.Dialect {
		return sqlite.NewDialect(o.MigrationsTable)
	})
}

func UseMySQL(db *sql.DB, options ...SQLOptionFunc) OptionFunc {
	return useSQL(db, "mysql", options, func(o *SQLOptions) repository.Dialect {
		return mysql.NewDialect(o.MigrationsTable, o.Charset)
	})
}

func UsePostgres(db *sql.DB, options ...SQLOptionFunc) OptionFunc {
	return useSQL(db, "postgres", options, func(o *SQLOptions) repository.Dialect {
		return postgres.NewDialect(o.MigrationsTable)
	})
}

func WithMigrationsTable(table string) SQLOptionFunc {
	return func(sqlOpts *SQLOptions, _ *connector.Options) {
		sqlOpts.MigrationsTable = table
	}
}

func WithCharset(charset string) SQLOptionFunc {
	return func(sqlOpts *SQLOptions, _ *connector.Options) {
		sqlOpts.Charset = charset
	}
}

func WithMaxConnectionAttempts(attempts int) SQLOptionFunc {
	return func(_ *SQLOptions, connectOpts *connector.Options) {
		connectOpts.MaxAttempts = attempts
	}
}

func WithConnectionTimeout(timeout time.Duration) SQLOptionFunc {
	return func(_ *SQLOptions, connectOpts *connector.Options) {
		connectOpts.MaxTimeout = timeout
	}
}

func useSQL(
	db *sql.DB,
	driverName string,
	options []SQLOptionFunc,
	dialect func(*SQLOptions) repository.Dialect,
) OptionFunc {
	return func(m *Migrator) error {
		sqlOpts := &SQLOptions{MigrationsTable: repository.DefaultTable}
		connectOpts := connector.NewDefaultOptions()

		for _, oFunc := range options {
			oFunc(sqlOpts, connectOpts)
		}

		c := connector.NewRetrying(sqlx.NewDb(db, driverName), connectOpts)
		dbx, err := c.Connect(context.Background())
		if err != nil {
			return err
		}

		repo, err := repository.NewSQL(dbx, dialect(sqlOpts))
		if err != nil {
			return err
		}

		m.repository = repo
		m.executor = executor.NewReal(dbx)
		m.closerFns = append(m.closerFns, c.Close)

		return nil
	}
}
