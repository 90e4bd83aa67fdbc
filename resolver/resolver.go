package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/migration"
)

var (
	ErrMigrationNotFound     = errors.New("migration not found")
	ErrDependencyNotMet      = errors.New("migration dependency not met")
	ErrCircularDependency    = errors.New("circular migration dependency")
	ErrDependentStillApplied = errors.New("migration is required by an applied migration")
)

// Error is a planning failure: nothing has been executed when it is returned.
type Error struct {
	Migration  string
	Dependency string
	Err        error
}

func (e *Error) Error() string {
	if e.Dependency == "" {
		return fmt.Sprintf("%s: [%s]", e.Err.Error(), e.Migration)
	}

	return fmt.Sprintf("%s: [%s] requires [%s]", e.Err.Error(), e.Migration, e.Dependency)
}

func (e *Error) Cause() error {
	return e.Err
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsPlanningError(err error) bool {
	return errors.Is(err, ErrMigrationNotFound) ||
		errors.Is(err, ErrDependencyNotMet) ||
		errors.Is(err, ErrCircularDependency) ||
		errors.Is(err, ErrDependentStillApplied)
}

// Resolver orders migrations so that every migration comes after the ones it
// depends on. Among migrations that are ready at the same time the one
// registered first wins, so equal inputs always give the same order.
type Resolver struct {
	order        map[string]int
	dependencies map[string][]string
}

func New(available []migration.Migration) *Resolver {
	r := &Resolver{
		order:        make(map[string]int, len(available)),
		dependencies: make(map[string][]string, len(available)),
	}

	for i, m := range available {
		if _, ok := r.order[m.Name()]; ok {
			continue
		}

		r.order[m.Name()] = i
		r.dependencies[m.Name()] = m.Dependencies()
	}

	return r
}

func (r *Resolver) Available(name string) bool {
	_, ok := r.order[name]
	return ok
}

// Forward orders targets for Up. Satisfied names count as already applied and
// may fulfil dependencies even if they are no longer available.
func (r *Resolver) Forward(targets []string, satisfied []string) ([]string, error) {
	done := toSet(satisfied)
	remaining := r.sortByRegistration(unique(targets, done))
	wanted := toSet(remaining)

	for _, name := range remaining {
		if !r.Available(name) {
			return nil, &Error{Migration: name, Err: ErrMigrationNotFound}
		}

		for _, dep := range r.dependencies[name] {
			if _, ok := done[dep]; ok {
				continue
			}

			if _, ok := wanted[dep]; ok {
				continue
			}

			if !r.Available(dep) {
				return nil, &Error{Migration: name, Dependency: dep, Err: ErrMigrationNotFound}
			}

			return nil, &Error{Migration: name, Dependency: dep, Err: ErrDependencyNotMet}
		}
	}

	resolved := make([]string, 0, len(remaining))
	for len(remaining) > 0 {
		next := -1
		for i, name := range remaining {
			if r.ready(name, done) {
				next = i
				break
			}
		}

		if next < 0 {
			return nil, &Error{Migration: strings.Join(remaining, ", "), Err: ErrCircularDependency}
		}

		name := remaining[next]
		resolved = append(resolved, name)
		done[name] = struct{}{}
		remaining = append(remaining[:next], remaining[next+1:]...)
	}

	return resolved, nil
}

// Backward orders targets for Down as the reverse of the applied order. It
// refuses when an applied migration outside targets depends on one of them.
func (r *Resolver) Backward(applied []string, targets []string) ([]string, error) {
	appliedSet := toSet(applied)
	for _, name := range targets {
		if _, ok := appliedSet[name]; !ok {
			return nil, &Error{Migration: name, Err: ErrMigrationNotFound}
		}
	}

	wanted := toSet(targets)
	for _, name := range applied {
		if _, ok := wanted[name]; ok {
			continue
		}

		for _, dep := range r.dependencies[name] {
			if _, ok := wanted[dep]; ok {
				return nil, &Error{Migration: name, Dependency: dep, Err: ErrDependentStillApplied}
			}
		}
	}

	resolved := make([]string, 0, len(wanted))
	for i := len(applied) - 1; i >= 0; i-- {
		if _, ok := wanted[applied[i]]; ok {
			resolved = append(resolved, applied[i])
			delete(wanted, applied[i])
		}
	}

	return resolved, nil
}

func (r *Resolver) ready(name string, done map[string]struct{}) bool {
	for _, dep := range r.dependencies[name] {
		if _, ok := done[dep]; !ok {
			return false
		}
	}

	return true
}

func (r *Resolver) sortByRegistration(names []string) []string {
	result := make([]string, 0, len(names))
	var unknown []string

	for _, name := range names {
		if r.Available(name) {
			result = append(result, name)
		} else {
			unknown = append(unknown, name)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return r.order[result[i]] < r.order[result[j]]
	})

	return append(result, unknown...)
}

func unique(names []string, skip map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))

	for _, name := range names {
		if _, ok := skip[name]; ok {
			continue
		}

		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		result = append(result, name)
	}

	return result
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
