package migration

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrDuplicateMigration = errors.New("migration already registered")

// Registry keeps migrations in registration order. The embedding application
// fills it at startup; nothing here scans the filesystem.
type Registry struct {
	migrations []Migration
	index      map[string]int
}

func NewRegistry(ms ...Migration) (*Registry, error) {
	r := &Registry{index: make(map[string]int)}
	if err := r.Register(ms...); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) Register(ms ...Migration) error {
	if r.index == nil {
		r.index = make(map[string]int)
	}

	for _, m := range ms {
		if m == nil || strings.TrimSpace(m.Name()) == "" {
			return ErrInvalidMigrationName
		}

		if _, ok := r.index[m.Name()]; ok {
			return errors.Wrapf(ErrDuplicateMigration, "[%s]", m.Name())
		}

		r.index[m.Name()] = len(r.migrations)
		r.migrations = append(r.migrations, m)
	}

	return nil
}

func (r *Registry) Get(name string) (Migration, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}

	return r.migrations[i], true
}

func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

func (r *Registry) All() []Migration {
	result := make([]Migration, len(r.migrations))
	copy(result, r.migrations)
	return result
}

func (r *Registry) Names() []string {
	result := make([]string, 0, len(r.migrations))
	for _, m := range r.migrations {
		result = append(result, m.Name())
	}
	return result
}

func (r *Registry) Len() int {
	return len(r.migrations)
}
