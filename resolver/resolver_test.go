package resolver

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userfrosting/migrator/migration"
)

func m(name string, deps ...string) migration.Migration {
	return migration.NewSQL(name, deps, nil, nil)
}

func assertDependenciesFirst(t *testing.T, available []migration.Migration, order []string) {
	t.Helper()

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}

	for _, mig := range available {
		i, ok := pos[mig.Name()]
		if !ok {
			continue
		}

		for _, dep := range mig.Dependencies() {
			if j, ok := pos[dep]; ok {
				assert.Less(t, j, i, "%s must come after %s", mig.Name(), dep)
			}
		}
	}
}

func TestForward(t *testing.T) {
	t.Run("migrations with no dependencies keep registration order", func(t *testing.T) {
		r := New([]migration.Migration{m("a"), m("b"), m("c")})

		order, err := r.Forward([]string{"c", "a", "b"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, order)
	})

	t.Run("dependencies are moved before the migrations requiring them", func(t *testing.T) {
		available := []migration.Migration{
			m("add_email_to_users", "create_users"),
			m("create_groups"),
			m("create_users"),
			m("create_user_groups", "create_users", "create_groups"),
		}
		r := New(available)

		order, err := r.Forward([]string{"add_email_to_users", "create_groups", "create_users", "create_user_groups"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"create_groups", "create_users", "add_email_to_users", "create_user_groups"}, order)
		assertDependenciesFirst(t, available, order)
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		available := []migration.Migration{m("d", "a"), m("c", "a"), m("b"), m("a")}
		r := New(available)

		first, err := r.Forward([]string{"a", "b", "c", "d"}, nil)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			again, err := New(available).Forward([]string{"d", "c", "b", "a"}, nil)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}

		assert.Equal(t, []string{"b", "a", "d", "c"}, first)
	})

	t.Run("satisfied names are skipped and fulfil dependencies", func(t *testing.T) {
		r := New([]migration.Migration{m("a"), m("b", "a")})

		order, err := r.Forward([]string{"a", "b"}, []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, order)
	})

	t.Run("a dependency satisfied by an applied but unavailable migration is fine", func(t *testing.T) {
		r := New([]migration.Migration{m("b", "a")})

		order, err := r.Forward([]string{"b"}, []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, order)
	})

	t.Run("a dependency neither applied nor available is not found", func(t *testing.T) {
		r := New([]migration.Migration{m("b", "a")})

		_, err := r.Forward([]string{"b"}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMigrationNotFound))
		assert.True(t, IsPlanningError(err))

		var rErr *Error
		require.True(t, errors.As(err, &rErr))
		assert.Equal(t, "b", rErr.Migration)
		assert.Equal(t, "a", rErr.Dependency)
	})

	t.Run("a dependency available but not targeted is not met", func(t *testing.T) {
		r := New([]migration.Migration{m("a"), m("b", "a")})

		_, err := r.Forward([]string{"b"}, nil)
		assert.True(t, errors.Is(err, ErrDependencyNotMet))
		assert.Equal(t, "migration dependency not met: [b] requires [a]", err.Error())
	})

	t.Run("an unknown target is not found", func(t *testing.T) {
		r := New([]migration.Migration{m("a")})

		_, err := r.Forward([]string{"a", "ghost"}, nil)
		assert.True(t, errors.Is(err, ErrMigrationNotFound))
	})

	t.Run("cycles are detected", func(t *testing.T) {
		r := New([]migration.Migration{m("a", "c"), m("b", "a"), m("c", "b"), m("d")})

		_, err := r.Forward([]string{"a", "b", "c", "d"}, nil)
		assert.True(t, errors.Is(err, ErrCircularDependency))
		assert.Contains(t, err.Error(), "a, b, c")
	})

	t.Run("empty targets resolve to an empty order", func(t *testing.T) {
		r := New(nil)

		order, err := r.Forward(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, order)
	})
}

func TestBackward(t *testing.T) {
	r := New([]migration.Migration{m("a"), m("b", "a"), m("c")})

	t.Run("targets are returned in reverse applied order", func(t *testing.T) {
		order, err := r.Backward([]string{"a", "c", "b"}, []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, order)
	})

	t.Run("a subset of the applied migrations can be rolled back", func(t *testing.T) {
		order, err := r.Backward([]string{"a", "c", "b"}, []string{"b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, order)
	})

	t.Run("a migration required by an applied one cannot be rolled back", func(t *testing.T) {
		_, err := r.Backward([]string{"a", "c", "b"}, []string{"a", "c"})
		assert.True(t, errors.Is(err, ErrDependentStillApplied))
		assert.True(t, IsPlanningError(err))
	})

	t.Run("a target that is not applied is not found", func(t *testing.T) {
		_, err := r.Backward([]string{"a"}, []string{"c"})
		assert.True(t, errors.Is(err, ErrMigrationNotFound))
	})
}
