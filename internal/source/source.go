package source

import (
	"context"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/migration"
)

var ErrNotAMigrationFile = errors.New("not a migration file")
var ErrMissingUpFile = errors.New("migration has a down file but no up file")

// Selector reads migration descriptors from somewhere outside the program.
type Selector interface {
	Select(ctx context.Context) ([]*migration.SQL, error)
}

type Source interface {
	Selector

	IsValid() bool
	AlreadyExists(name string) bool
	Create(name string, dependencies []string, withDown bool) (*migration.SQL, error)
}

// Registry selects every migration of s and registers them in the order
// they were selected.
func Registry(ctx context.Context, s Selector) (*migration.Registry, error) {
	ms, err := s.Select(ctx)
	if err != nil {
		return nil, err
	}

	r := &migration.Registry{}
	for _, m := range ms {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}

	return r, nil
}
