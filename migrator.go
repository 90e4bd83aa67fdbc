package migrator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/executor"
	"github.com/userfrosting/migrator/internal/logger"
	"github.com/userfrosting/migrator/migration"
	"github.com/userfrosting/migrator/repository"
	"github.com/userfrosting/migrator/resolver"
)

const (
	OperationMigrate  = "migrate"
	OperationRollback = "rollback"
	OperationReset    = "reset"
	OperationRefresh  = "refresh"
	OperationClean    = "clean"
)

type CloserFunc func() error

// Migrator plans and runs migrations from a registry against a repository of
// applied migrations. Calls are sequential and must not be shared between
// goroutines or processes working on the same repository.
type Migrator struct {
	lg         logger.Logger
	registry   *migration.Registry
	repository repository.Repository
	executor   executor.Executor
	confirm    Confirmer
	closerFns  []CloserFunc
}

type loggerSetter interface {
	SetLogger(logger.Logger)
}

// New creates a migrator from option callbacks. A repository and an executor
// are required, either directly or through UseSQLite, UseMySQL or UsePostgres.
func New(opts ...OptionFunc) (*Migrator, CloserFunc, error) {
	m := new(Migrator)
	m.lg = &logger.NullLogger{}

	for _, oFunc := range opts {
		if err := oFunc(m); err != nil {
			_ = m.close()
			return nil, nil, err
		}
	}

	if m.repository == nil {
		_ = m.close()
		return nil, nil, ErrRepositoryNotInitialized
	}

	if m.executor == nil {
		_ = m.close()
		return nil, nil, ErrExecutorNotInitialized
	}

	if m.registry == nil {
		m.registry = &migration.Registry{}
	}

	if s, ok := m.repository.(loggerSetter); ok {
		s.SetLogger(m.lg)
	}

	if s, ok := m.executor.(loggerSetter); ok {
		s.SetLogger(m.lg)
	}

	return m, m.close, nil
}

func (m *Migrator) close() error {
	var result error
	for _, f := range m.closerFns {
		if err := f(); err != nil {
			m.lg.Error(err)
			if result == nil {
				result = err
			}
		}
	}

	m.closerFns = nil

	return result
}

func (m *Migrator) Registry() *migration.Registry {
	return m.registry
}

func (m *Migrator) Repository() repository.Repository {
	return m.repository
}

func (m *Migrator) RepositoryExists(ctx context.Context) (bool, error) {
	return m.repository.Exists(ctx)
}

// Available returns every registered migration in dependency order.
func (m *Migrator) Available(ctx context.Context) ([]string, error) {
	records, err := m.repository.All(ctx)
	if err != nil {
		return nil, err
	}

	return m.resolver().Forward(m.registry.Names(), m.stale(records))
}

// Pending returns the registered migrations that are not applied yet, in the
// order Migrate would run them.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	records, err := m.repository.All(ctx)
	if err != nil {
		return nil, err
	}

	return m.pending(records)
}

// Stale returns applied migrations that are no longer registered.
func (m *Migrator) Stale(ctx context.Context) ([]string, error) {
	records, err := m.repository.All(ctx)
	if err != nil {
		return nil, err
	}

	return m.stale(records), nil
}

// Migrate runs every pending migration. Each success is recorded right away,
// so on failure the migrations before the failing one stay applied and are
// returned together with the error.
func (m *Migrator) Migrate(ctx context.Context, cfs ...ActionConfigurator) ([]string, error) {
	act := newAction(cfs)

	pending, err := m.Pending(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	if len(pending) == 0 {
		m.lg.Debugf("nothing to migrate")
		return []string{}, nil
	}

	if err := m.confirmed(OperationMigrate, pending, act); err != nil {
		return nil, err
	}

	if err := m.repository.CreateIfMissing(ctx); err != nil {
		m.lg.Error(err)
		return nil, err
	}

	last, err := m.repository.LastBatchNumber(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	batch := last + 1
	migrated := make([]string, 0, len(pending))

	for _, name := range pending {
		if err := ctx.Err(); err != nil {
			return migrated, errors.Wrapf(err, "migrate stopped before [%s]", name)
		}

		mig, _ := m.registry.Get(name)

		m.lg.Debugf("migrating: batch: %d name: %s", batch, name)
		if err := mig.Up(ctx, m.executor); err != nil {
			execErr := &ExecutionError{Migration: name, Direction: migration.Up, Err: err}
			m.lg.Error(execErr)
			return migrated, execErr
		}

		if err := m.repository.Log(ctx, name, batch); err != nil {
			m.lg.Error(err)
			return migrated, err
		}

		m.lg.Successf("migrated: batch: %d name: %s", batch, name)
		migrated = append(migrated, name)

		if act.step {
			batch++
		}
	}

	return migrated, nil
}

// MigrationsForRollback returns the migrations of the steps most recent
// batches in the order Rollback would revert them.
func (m *Migrator) MigrationsForRollback(ctx context.Context, steps int) ([]string, error) {
	records, err := m.repository.All(ctx)
	if err != nil {
		return nil, err
	}

	batches, err := m.repository.BatchesForRollback(ctx, steps)
	if err != nil {
		return nil, err
	}

	return m.planBackward(records, records.InBatches(batches).Names())
}

func (m *Migrator) MigrationsForReset(ctx context.Context) ([]string, error) {
	records, err := m.repository.All(ctx)
	if err != nil {
		return nil, err
	}

	return m.planBackward(records, records.Names())
}

func (m *Migrator) Rollback(ctx context.Context, steps int, cfs ...ActionConfigurator) ([]string, error) {
	scheduled, err := m.MigrationsForRollback(ctx, steps)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	return m.revert(ctx, OperationRollback, scheduled, newAction(cfs))
}

// Reset reverts every applied migration. The repository itself is kept; use
// Repository().Delete to drop it afterwards.
func (m *Migrator) Reset(ctx context.Context, cfs ...ActionConfigurator) ([]string, error) {
	scheduled, err := m.MigrationsForReset(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	return m.revert(ctx, OperationReset, scheduled, newAction(cfs))
}

// Clean removes the records of stale migrations and returns their names.
func (m *Migrator) Clean(ctx context.Context, cfs ...ActionConfigurator) ([]string, error) {
	stale, err := m.Stale(ctx)
	if err != nil {
		return nil, err
	}

	if len(stale) == 0 {
		return []string{}, nil
	}

	if err := m.confirmed(OperationClean, stale, newAction(cfs)); err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(stale))
	for _, name := range stale {
		if err := m.repository.Remove(ctx, name); err != nil {
			m.lg.Error(err)
			return removed, err
		}

		m.lg.Successf("removed stale migration: %s", name)
		removed = append(removed, name)
	}

	return removed, nil
}

// Refresh rolls back the steps most recent batches and migrates again. It is
// confirmed once for both halves. If the rollback fails nothing is migrated.
func (m *Migrator) Refresh(ctx context.Context, steps int, cfs ...ActionConfigurator) ([]string, []string, error) {
	act := newAction(cfs)

	scheduled, err := m.MigrationsForRollback(ctx, steps)
	if err != nil {
		m.lg.Error(err)
		return nil, nil, err
	}

	if len(scheduled) > 0 {
		if err := m.confirmed(OperationRefresh, scheduled, act); err != nil {
			return nil, nil, err
		}

		cfs = append(cfs, WithForce())
	}

	rolledBack, err := m.revert(ctx, OperationRollback, scheduled, &Action{force: true})
	if err != nil {
		return rolledBack, nil, err
	}

	migrated, err := m.Migrate(ctx, cfs...)
	if err != nil {
		return rolledBack, migrated, err
	}

	return rolledBack, migrated, nil
}

func (m *Migrator) revert(ctx context.Context, operation string, scheduled []string, act *Action) ([]string, error) {
	if len(scheduled) == 0 {
		m.lg.Debugf("nothing to %s", operation)
		return []string{}, nil
	}

	if err := m.confirmed(operation, scheduled, act); err != nil {
		return nil, err
	}

	reverted := make([]string, 0, len(scheduled))

	for _, name := range scheduled {
		if err := ctx.Err(); err != nil {
			return reverted, errors.Wrapf(err, "%s stopped before [%s]", operation, name)
		}

		mig, _ := m.registry.Get(name)

		m.lg.Debugf("rolling back: %s", name)
		if err := mig.Down(ctx, m.executor); err != nil {
			execErr := &ExecutionError{Migration: name, Direction: migration.Down, Err: err}
			m.lg.Error(execErr)
			return reverted, execErr
		}

		if err := m.repository.Remove(ctx, name); err != nil {
			m.lg.Error(err)
			return reverted, err
		}

		m.lg.Successf("rolled back: %s", name)
		reverted = append(reverted, name)
	}

	return reverted, nil
}

func (m *Migrator) confirmed(operation string, scheduled []string, act *Action) error {
	if act.force || m.confirm == nil {
		return nil
	}

	if !m.confirm(operation, scheduled) {
		return errors.Wrapf(ErrNotConfirmed, "[%s]", operation)
	}

	return nil
}

func (m *Migrator) resolver() *resolver.Resolver {
	return resolver.New(m.registry.All())
}

func (m *Migrator) pending(records repository.Records) ([]string, error) {
	var targets []string
	for _, name := range m.registry.Names() {
		if !records.Has(name) {
			targets = append(targets, name)
		}
	}

	return m.resolver().Forward(targets, records.Names())
}

func (m *Migrator) stale(records repository.Records) []string {
	result := []string{}
	for _, r := range records {
		if !m.registry.Has(r.Migration) {
			result = append(result, r.Migration)
		}
	}
	return result
}

// planBackward orders targets for Down and makes sure each has a descriptor
// to run.
func (m *Migrator) planBackward(records repository.Records, targets []string) ([]string, error) {
	scheduled, err := m.resolver().Backward(records.Names(), targets)
	if err != nil {
		return nil, err
	}

	for _, name := range scheduled {
		if !m.registry.Has(name) {
			return nil, &resolver.Error{Migration: name, Err: resolver.ErrMigrationNotFound}
		}
	}

	return scheduled, nil
}
