package migrator

import (
	"context"

	"github.com/userfrosting/migrator/executor"
	"github.com/userfrosting/migrator/migration"
	"github.com/userfrosting/migrator/repository"
)

type Capture struct {
	Migration  string
	Statements []string
}

// Pretended holds the statements captured for each migration, in the order
// the real operation would run them.
type Pretended []Capture

func (p Pretended) Names() []string {
	result := make([]string, 0, len(p))
	for i := range p {
		result = append(result, p[i].Migration)
	}
	return result
}

func (p Pretended) Map() map[string][]string {
	result := make(map[string][]string, len(p))
	for i := range p {
		result[p[i].Migration] = p[i].Statements
	}
	return result
}

// PretendToMigrate captures what Migrate would run without touching the
// database or the repository.
func (m *Migrator) PretendToMigrate(ctx context.Context) (Pretended, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	return m.pretend(ctx, pending, migration.Up)
}

func (m *Migrator) PretendToRollback(ctx context.Context, steps int) (Pretended, error) {
	scheduled, err := m.MigrationsForRollback(ctx, steps)
	if err != nil {
		return nil, err
	}

	return m.pretend(ctx, scheduled, migration.Down)
}

func (m *Migrator) PretendToReset(ctx context.Context) (Pretended, error) {
	scheduled, err := m.MigrationsForReset(ctx)
	if err != nil {
		return nil, err
	}

	return m.pretend(ctx, scheduled, migration.Down)
}

// PretendToRefresh captures the rollback half and then the migrate half as it
// would run once the rolled back migrations are pending again.
func (m *Migrator) PretendToRefresh(ctx context.Context, steps int) (Pretended, Pretended, error) {
	scheduled, err := m.MigrationsForRollback(ctx, steps)
	if err != nil {
		return nil, nil, err
	}

	down, err := m.pretend(ctx, scheduled, migration.Down)
	if err != nil {
		return down, nil, err
	}

	records, err := m.repository.All(ctx)
	if err != nil {
		return down, nil, err
	}

	rolledBack := make(map[string]struct{}, len(scheduled))
	for _, name := range scheduled {
		rolledBack[name] = struct{}{}
	}

	remaining := make(repository.Records, 0, len(records))
	for _, r := range records {
		if _, ok := rolledBack[r.Migration]; !ok {
			remaining = append(remaining, r)
		}
	}

	pending, err := m.pending(remaining)
	if err != nil {
		return down, nil, err
	}

	up, err := m.pretend(ctx, pending, migration.Up)
	return down, up, err
}

func (m *Migrator) pretend(ctx context.Context, scheduled []string, dir migration.Direction) (Pretended, error) {
	result := make(Pretended, 0, len(scheduled))

	for _, name := range scheduled {
		mig, _ := m.registry.Get(name)
		capturing := executor.NewCapturing()

		var err error
		if dir == migration.Up {
			err = mig.Up(ctx, capturing)
		} else {
			err = mig.Down(ctx, capturing)
		}

		if err != nil {
			return result, &ExecutionError{Migration: name, Direction: dir, Err: err}
		}

		m.lg.Debugf("pretended %s: %s (%d statements)", dir, name, len(capturing.Statements()))
		result = append(result, Capture{Migration: name, Statements: capturing.Statements()})
	}

	return result, nil
}
