package cli

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/userfrosting/migrator"
	"github.com/userfrosting/migrator/internal/logger"
	"github.com/userfrosting/migrator/migration"
)

type (
	migratorFactory    func(db *sql.DB, options ...migrator.SQLOptionFunc) migrator.OptionFunc
	migratorFactoryMap map[string]migratorFactory
)

// sqlDrivers maps dburl driver names to the database/sql drivers registered
// by the imports above.
var sqlDrivers = map[string]string{
	"mysql":    "mysql",
	"postgres": "pgx",
	"sqlite3":  "sqlite3",
}

func defaultFactories() migratorFactoryMap {
	factoryMap := make(migratorFactoryMap)
	factoryMap["mysql"] = migrator.UseMySQL
	factoryMap["postgres"] = migrator.UsePostgres
	factoryMap["sqlite3"] = migrator.UseSQLite
	return factoryMap
}

func createMigrator(
	cfg Config,
	connection string,
	registry *migration.Registry,
	confirm migrator.Confirmer,
	p logger.Printer,
	verbose bool,
) (*migrator.Migrator, migrator.CloserFunc, error) {
	u, err := cfg.Connection(connection)
	if err != nil {
		return nil, nil, err
	}

	opts := []migrator.OptionFunc{
		migrator.UseRegistry(registry),
		migrator.UseConfirmer(confirm),
	}

	if p != nil {
		opts = append(opts, migrator.UseColorLogger(p, verbose, verbose))
	}

	return createMigratorFrom(u.Driver, u.DSN, defaultFactories(), cfg, opts...)
}

func createMigratorFrom(
	driver string,
	dsn string,
	factoryMap migratorFactoryMap,
	cfg Config,
	extra ...migrator.OptionFunc,
) (*migrator.Migrator, migrator.CloserFunc, error) {
	factory, ok := factoryMap[driver]
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnsupportedDriver, "could not find factory for driver [%s]", driver)
	}

	db, err := sql.Open(sqlDrivers[driver], dsn)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not open [%s] database", driver)
	}

	opts := []migrator.OptionFunc{
		factory(db, migrator.WithMigrationsTable(cfg.MigrationsTable), migrator.WithCharset(cfg.Charset)),
	}
	opts = append(opts, extra...)

	m, closer, err := migrator.New(opts...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return m, closer, nil
}
