package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/internal/logger"
)

var ErrInvalidTableName = errors.New("invalid migrations table name")

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect carries the storage statements that differ between databases.
// Every other query is written with ? placeholders and rebound per driver.
type Dialect interface {
	Table() string
	CreateQuery() string
	HasTableQuery() (string, []interface{})
	DropQuery() string
}

type SQL struct {
	db      *sqlx.DB
	dialect Dialect
	lg      logger.Logger
}

var _ Repository = (*SQL)(nil)

func NewSQL(db *sqlx.DB, d Dialect) (*SQL, error) {
	if !tableNameRegexp.MatchString(d.Table()) {
		return nil, errors.Wrapf(ErrInvalidTableName, "[%s]", d.Table())
	}

	return &SQL{db: db, dialect: d, lg: logger.NullLogger{}}, nil
}

func (r *SQL) SetLogger(lg logger.Logger) {
	r.lg = lg
}

func (r *SQL) CreateIfMissing(ctx context.Context) error {
	q := r.dialect.CreateQuery()
	r.lg.SQL(q)

	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "could not create migrations table [%s]", r.dialect.Table())
	}

	return nil
}

func (r *SQL) Exists(ctx context.Context) (bool, error) {
	q, args := r.dialect.HasTableQuery()
	q = r.db.Rebind(q)
	r.lg.SQL(q, args...)

	var count int
	if err := r.db.GetContext(ctx, &count, q, args...); err != nil {
		return false, errors.Wrapf(err, "could not check migrations table [%s]", r.dialect.Table())
	}

	return count > 0, nil
}

func (r *SQL) All(ctx context.Context) (Records, error) {
	exists, err := r.Exists(ctx)
	if err != nil || !exists {
		return Records{}, err
	}

	q := fmt.Sprintf("SELECT migration, batch FROM %s ORDER BY batch ASC, id ASC", r.dialect.Table())
	r.lg.SQL(q)

	result := Records{}
	if err := r.db.SelectContext(ctx, &result, q); err != nil {
		return nil, errors.Wrap(err, "could not read migration records")
	}

	return result, nil
}

func (r *SQL) LastBatchNumber(ctx context.Context) (int, error) {
	exists, err := r.Exists(ctx)
	if err != nil || !exists {
		return 0, err
	}

	q := fmt.Sprintf("SELECT COALESCE(MAX(batch), 0) FROM %s", r.dialect.Table())
	r.lg.SQL(q)

	var last int
	if err := r.db.GetContext(ctx, &last, q); err != nil {
		return 0, errors.Wrap(err, "could not read last batch number")
	}

	return last, nil
}

func (r *SQL) BatchesForRollback(ctx context.Context, steps int) ([]int, error) {
	if steps < 1 {
		return nil, errors.Wrapf(ErrInvalidSteps, "got [%d]", steps)
	}

	exists, err := r.Exists(ctx)
	if err != nil || !exists {
		return []int{}, err
	}

	q := r.db.Rebind(fmt.Sprintf(
		"SELECT DISTINCT batch FROM %s ORDER BY batch DESC LIMIT ?",
		r.dialect.Table(),
	))
	r.lg.SQL(q, steps)

	batches := []int{}
	if err := r.db.SelectContext(ctx, &batches, q, steps); err != nil {
		return nil, errors.Wrapf(err, "could not read last [%d] batches", steps)
	}

	return batches, nil
}

func (r *SQL) Log(ctx context.Context, migration string, batch int) error {
	q := r.db.Rebind(fmt.Sprintf("SELECT count(*) FROM %s WHERE migration = ?", r.dialect.Table()))
	r.lg.SQL(q, migration)

	var count int
	if err := r.db.GetContext(ctx, &count, q, migration); err != nil {
		return errors.Wrapf(err, "could not look up migration [%s]", migration)
	}

	if count > 0 {
		return errors.Wrapf(ErrAlreadyLogged, "[%s]", migration)
	}

	insert := r.db.Rebind(fmt.Sprintf("INSERT INTO %s (migration, batch) VALUES (?, ?)", r.dialect.Table()))
	r.lg.SQL(insert, migration, batch)

	if _, err := r.db.ExecContext(ctx, insert, migration, batch); err != nil {
		return errors.Wrapf(err, "could not log migration [%s] with batch [%d]", migration, batch)
	}

	return nil
}

func (r *SQL) Remove(ctx context.Context, migration string) error {
	q := r.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE migration = ?", r.dialect.Table()))
	r.lg.SQL(q, migration)

	if _, err := r.db.ExecContext(ctx, q, migration); err != nil {
		return errors.Wrapf(err, "could not remove migration [%s]", migration)
	}

	return nil
}

func (r *SQL) Delete(ctx context.Context) error {
	records, err := r.All(ctx)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		return errors.Wrapf(ErrRepositoryNotEmpty, "%d records remain", len(records))
	}

	q := r.dialect.DropQuery()
	r.lg.SQL(q)

	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "could not drop migrations table [%s]", r.dialect.Table())
	}

	return nil
}
