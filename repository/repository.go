package repository

import (
	"context"

	"github.com/pkg/errors"
)

const DefaultTable = "migrations"

var (
	ErrAlreadyLogged      = errors.New("migration already logged")
	ErrRepositoryNotEmpty = errors.New("migration repository is not empty")
	ErrInvalidSteps       = errors.New("steps must be a positive number")
)

// Repository is the persistent log of applied migrations.
type Repository interface {
	CreateIfMissing(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	// All is ordered by batch, then by insertion within a batch.
	All(ctx context.Context) (Records, error)
	LastBatchNumber(ctx context.Context) (int, error)
	// BatchesForRollback returns the steps most recent batch numbers, newest first.
	BatchesForRollback(ctx context.Context, steps int) ([]int, error)
	Log(ctx context.Context, migration string, batch int) error
	Remove(ctx context.Context, migration string) error
	// Delete drops the storage. It refuses while records remain.
	Delete(ctx context.Context) error
}

type Record struct {
	Migration string `db:"migration"`
	Batch     int    `db:"batch"`
}

type Records []Record

func (rs Records) Names() []string {
	result := make([]string, 0, len(rs))
	for i := range rs {
		result = append(result, rs[i].Migration)
	}
	return result
}

func (rs Records) Has(migration string) bool {
	for i := range rs {
		if rs[i].Migration == migration {
			return true
		}
	}
	return false
}

func (rs Records) InBatches(batches []int) Records {
	wanted := make(map[int]struct{}, len(batches))
	for _, b := range batches {
		wanted[b] = struct{}{}
	}

	var result Records
	for i := range rs {
		if _, ok := wanted[rs[i].Batch]; ok {
			result = append(result, rs[i])
		}
	}
	return result
}

func (rs Records) Batch(migration string) (int, bool) {
	for i := range rs {
		if rs[i].Migration == migration {
			return rs[i].Batch, true
		}
	}
	return 0, false
}
