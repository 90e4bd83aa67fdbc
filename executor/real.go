package executor

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/internal/logger"
)

var ErrTxDeadlock = errors.New("transaction deadlock occurred")

type TxConfig struct {
	Iso sql.IsolationLevel
}

type TxConfigFunc func(*TxConfig)

type ISO int

const (
	Default ISO = iota
	Serializable
	RepeatableRead
	ReadCommitted
)

func Isolation(iso ISO) TxConfigFunc {
	return func(txCfg *TxConfig) {
		switch iso {
		case Serializable:
			txCfg.Iso = sql.LevelSerializable
		case RepeatableRead:
			txCfg.Iso = sql.LevelRepeatableRead
		case ReadCommitted:
			txCfg.Iso = sql.LevelReadCommitted
		default:
			txCfg.Iso = sql.LevelDefault
		}
	}
}

type beginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Real sends statements to the database.
type Real struct {
	ex sqlx.ExecerContext
	lg logger.Logger
}

var _ Transactor = (*Real)(nil)

func NewReal(ex sqlx.ExecerContext) *Real {
	return &Real{ex: ex, lg: logger.NullLogger{}}
}

func (r *Real) SetLogger(lg logger.Logger) {
	r.lg = lg
}

func (r *Real) Exec(ctx context.Context, query string, args ...interface{}) error {
	r.lg.SQL(query, args...)

	if _, err := r.ex.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "could not execute [%s]", query)
	}

	return nil
}

func (r *Real) Pretending() bool {
	return false
}

// Transaction runs fn within a single transaction when the underlying handle
// can begin one. A handle that already is a transaction runs fn directly.
func (r *Real) Transaction(ctx context.Context, fn func(Executor) error, cfn ...TxConfigFunc) error {
	b, ok := r.ex.(beginner)
	if !ok {
		return fn(r)
	}

	txCfg := TxConfig{Iso: sql.LevelDefault}
	for _, f := range cfn {
		f(&txCfg)
	}

	tx, err := b.BeginTxx(ctx, &sql.TxOptions{Isolation: txCfg.Iso})
	if err != nil {
		return errors.Wrapf(err, "could not start transaction, isolation: %d", txCfg.Iso)
	}

	if err := fn(&Real{ex: tx, lg: r.lg}); err != nil {
		if isDeadlock(err) {
			err = errors.Wrapf(ErrTxDeadlock, "isolation: %d, on callback: %s", txCfg.Iso, err.Error())
		}

		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(err, " : ROLLBACK : "+rbErr.Error())
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		if isDeadlock(err) {
			return errors.Wrapf(ErrTxDeadlock, "isolation: %d, on commit: %s", txCfg.Iso, err.Error())
		}

		return errors.Wrapf(err, "could not commit transaction, isolation: %d", txCfg.Iso)
	}

	return nil
}

func isDeadlock(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "deadlock")
}
