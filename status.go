package migrator

import (
	"context"
)

type Status struct {
	Migration string
	Batch     int
	Applied   bool
	Stale     bool
}

// Status lists applied migrations in repository order followed by the
// pending ones in the order they would run.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	records, err := m.repository.All(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := m.pending(records)
	if err != nil {
		return nil, err
	}

	result := make([]Status, 0, len(records)+len(pending))
	for _, r := range records {
		result = append(result, Status{
			Migration: r.Migration,
			Batch:     r.Batch,
			Applied:   true,
			Stale:     !m.registry.Has(r.Migration),
		})
	}

	for _, name := range pending {
		result = append(result, Status{Migration: name})
	}

	return result, nil
}
