package sqlite

import (
	"fmt"

	"github.com/userfrosting/migrator/repository"
)

type Dialect struct {
	migrationsTable string
}

var _ repository.Dialect = (*Dialect)(nil)

func NewDialect(migrationsTable string) *Dialect {
	if migrationsTable == "" {
		migrationsTable = repository.DefaultTable
	}

	return &Dialect{migrationsTable: migrationsTable}
}

func (d Dialect) Table() string {
	return d.migrationsTable
}

func (d Dialect) CreateQuery() string {
	const createSQL = `
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			migration VARCHAR(255) NOT NULL UNIQUE,
			batch INTEGER NOT NULL,
			migrated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`

	return fmt.Sprintf(createSQL, d.migrationsTable)
}

func (d Dialect) HasTableQuery() (string, []interface{}) {
	return "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []interface{}{d.migrationsTable}
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.migrationsTable)
}
