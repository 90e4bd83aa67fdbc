package mysql

import (
	"fmt"

	"github.com/userfrosting/migrator/repository"
)

const DefaultCharset = "utf8mb4"

type Dialect struct {
	migrationsTable, charset string
}

var _ repository.Dialect = (*Dialect)(nil)

func NewDialect(migrationsTable, charset string) *Dialect {
	if migrationsTable == "" {
		migrationsTable = repository.DefaultTable
	}

	if charset == "" {
		charset = DefaultCharset
	}

	return &Dialect{migrationsTable: migrationsTable, charset: charset}
}

func (d Dialect) Table() string {
	return d.migrationsTable
}

func (d Dialect) CreateQuery() string {
	const createSQL = `
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			migration VARCHAR(255) NOT NULL,
			batch INT NOT NULL,
			migrated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY %s_migration_unique (migration)
		) ENGINE=InnoDB CHARACTER SET=%s
	`

	return fmt.Sprintf(createSQL, d.migrationsTable, d.migrationsTable, d.charset)
}

func (d Dialect) HasTableQuery() (string, []interface{}) {
	const q = "SELECT count(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	return q, []interface{}{d.migrationsTable}
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.migrationsTable)
}
