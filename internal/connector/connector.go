package connector

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/internal/retry"
)

const (
	DefaultConnectionAttempts    = 10
	DefaultConnectionTimeout     = 60 * time.Second
	DefaultConnectionAttemptStep = 2 * time.Second
)

type Options struct {
	MaxAttempts int
	MaxTimeout  time.Duration
	RetryStep   time.Duration
}

func NewDefaultOptions() *Options {
	return &Options{
		MaxAttempts: DefaultConnectionAttempts,
		MaxTimeout:  DefaultConnectionTimeout,
		RetryStep:   DefaultConnectionAttemptStep,
	}
}

// Retrying waits for the database to answer before the migrator uses it.
type Retrying struct {
	options *Options
	db      *sqlx.DB
}

func NewRetrying(db *sqlx.DB, options *Options) *Retrying {
	if options == nil {
		options = NewDefaultOptions()
	}

	return &Retrying{db: db, options: options}
}

func (c *Retrying) Connect(ctx context.Context) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, c.options.MaxTimeout)
	defer cancel()

	err := retry.Incremental(ctx, c.options.RetryStep, c.options.MaxAttempts, func(attempt int) error {
		if err := c.db.PingContext(ctx); err != nil {
			return retry.Error(errors.Wrapf(err, "db ping attempt [%d] failed", attempt), attempt)
		}

		var result int
		if err := c.db.QueryRowxContext(ctx, "SELECT 1").Scan(&result); err != nil {
			return errors.Wrap(err, "could not ping DB")
		}

		return nil
	})

	if err != nil {
		return nil, errors.Wrap(err, "could not establish DB connection")
	}

	return c.db, nil
}

func (c *Retrying) Close() error {
	if err := c.db.Close(); err != nil {
		return errors.Wrap(err, "retrying connector could not close the connection")
	}

	return nil
}
