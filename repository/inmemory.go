package repository

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

type InMemory struct {
	exists  bool
	records Records
}

var _ Repository = (*InMemory)(nil)

func NewInMemory(records ...Record) *InMemory {
	owned := make(Records, len(records))
	copy(owned, records)
	return &InMemory{exists: len(records) > 0, records: owned}
}

func (r *InMemory) CreateIfMissing(_ context.Context) error {
	r.exists = true
	return nil
}

func (r *InMemory) Exists(_ context.Context) (bool, error) {
	return r.exists, nil
}

func (r *InMemory) All(_ context.Context) (Records, error) {
	result := make(Records, len(r.records))
	copy(result, r.records)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Batch < result[j].Batch
	})
	return result, nil
}

func (r *InMemory) LastBatchNumber(_ context.Context) (int, error) {
	last := 0
	for i := range r.records {
		if r.records[i].Batch > last {
			last = r.records[i].Batch
		}
	}
	return last, nil
}

func (r *InMemory) BatchesForRollback(_ context.Context, steps int) ([]int, error) {
	if steps < 1 {
		return nil, errors.Wrapf(ErrInvalidSteps, "got [%d]", steps)
	}

	seen := make(map[int]struct{})
	var batches []int
	for i := range r.records {
		if _, ok := seen[r.records[i].Batch]; !ok {
			seen[r.records[i].Batch] = struct{}{}
			batches = append(batches, r.records[i].Batch)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(batches)))
	if len(batches) > steps {
		batches = batches[:steps]
	}

	return batches, nil
}

func (r *InMemory) Log(_ context.Context, migration string, batch int) error {
	if r.records.Has(migration) {
		return errors.Wrapf(ErrAlreadyLogged, "[%s]", migration)
	}

	r.exists = true
	r.records = append(r.records, Record{Migration: migration, Batch: batch})
	return nil
}

func (r *InMemory) Remove(_ context.Context, migration string) error {
	for i := range r.records {
		if r.records[i].Migration == migration {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *InMemory) Delete(_ context.Context) error {
	if len(r.records) > 0 {
		return errors.Wrapf(ErrRepositoryNotEmpty, "%d records remain", len(r.records))
	}

	r.exists = false
	return nil
}
