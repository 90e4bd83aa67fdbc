package executor

import (
	"context"
)

// Executor runs the statements a migration produces. Migrations receive one
// on every Up and Down call and must not keep it past the call.
type Executor interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	Pretending() bool
}

// Transactor is an Executor able to isolate a group of statements.
type Transactor interface {
	Executor
	Transaction(ctx context.Context, fn func(Executor) error, cfn ...TxConfigFunc) error
}

// Transaction runs fn inside a transaction when ex supports it, otherwise
// fn receives ex unchanged.
func Transaction(ctx context.Context, ex Executor, fn func(Executor) error, cfn ...TxConfigFunc) error {
	if t, ok := ex.(Transactor); ok {
		return t.Transaction(ctx, fn, cfn...)
	}

	return fn(ex)
}
