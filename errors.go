package migrator

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/migration"
)

var (
	ErrRepositoryNotInitialized = errors.New("migration repository has not been initialized")
	ErrExecutorNotInitialized   = errors.New("statement executor has not been initialized")
	ErrNotConfirmed             = errors.New("operation was not confirmed")
)

// ExecutionError is returned when a migration fails while running. Every
// migration before it has been applied (or reverted) and recorded.
type ExecutionError struct {
	Migration string
	Direction migration.Direction
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("migration [%s] failed to run %s: %s", e.Migration, e.Direction, e.Err.Error())
}

func (e *ExecutionError) Cause() error {
	return e.Err
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
