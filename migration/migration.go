package migration

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/executor"
)

var ErrInvalidMigrationName = errors.New("invalid migration name")

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migration is a named, reversible schema change. Name is the join key with
// the repository records and must stay stable across releases.
type Migration interface {
	Name() string
	Dependencies() []string
	Up(ctx context.Context, ex executor.Executor) error
	Down(ctx context.Context, ex executor.Executor) error
}

type (
	Func func(ctx context.Context, ex executor.Executor) error

	// SQL is a migration made of plain statements.
	SQL struct {
		name          string
		dependencies  []string
		transactional bool
		txConfig      []executor.TxConfigFunc
		Migrate       []string
		Rollback      []string
	}

	FuncMigration struct {
		name         string
		dependencies []string
		up           Func
		down         Func
	}
)

var _ Migration = (*SQL)(nil)
var _ Migration = (*FuncMigration)(nil)

func NewSQL(name string, dependencies []string, migrate, rollback []string) *SQL {
	return &SQL{
		name:         name,
		dependencies: dependencies,
		Migrate:      migrate,
		Rollback:     rollback,
	}
}

func NewFunc(name string, dependencies []string, up, down Func) *FuncMigration {
	return &FuncMigration{
		name:         name,
		dependencies: dependencies,
		up:           up,
		down:         down,
	}
}

// InTransaction runs the statements of each direction in one transaction, so
// a failing statement leaves none of the earlier ones applied. Executors that
// cannot begin a transaction run the statements directly.
func (m *SQL) InTransaction(cfn ...executor.TxConfigFunc) *SQL {
	m.transactional = true
	m.txConfig = cfn
	return m
}

func (m *SQL) Transactional() bool {
	return m.transactional
}

func (m *SQL) Name() string {
	return m.name
}

func (m *SQL) Dependencies() []string {
	return m.dependencies
}

func (m *SQL) Up(ctx context.Context, ex executor.Executor) error {
	return m.exec(ctx, ex, m.Migrate)
}

func (m *SQL) Down(ctx context.Context, ex executor.Executor) error {
	return m.exec(ctx, ex, m.Rollback)
}

func (m *SQL) exec(ctx context.Context, ex executor.Executor, scripts []string) error {
	if !m.transactional {
		return run(ctx, ex, scripts)
	}

	return executor.Transaction(ctx, ex, func(tx executor.Executor) error {
		return run(ctx, tx, scripts)
	}, m.txConfig...)
}

func (m *SQL) UpScripts() string {
	return joinScripts(m.Migrate)
}

func (m *SQL) DownScripts() string {
	return joinScripts(m.Rollback)
}

func (m *FuncMigration) Name() string {
	return m.name
}

func (m *FuncMigration) Dependencies() []string {
	return m.dependencies
}

func (m *FuncMigration) Up(ctx context.Context, ex executor.Executor) error {
	if m.up == nil {
		return nil
	}
	return m.up(ctx, ex)
}

func (m *FuncMigration) Down(ctx context.Context, ex executor.Executor) error {
	if m.down == nil {
		return nil
	}
	return m.down(ctx, ex)
}

func run(ctx context.Context, ex executor.Executor, scripts []string) error {
	for _, script := range scripts {
		if strings.TrimSpace(script) == "" {
			continue
		}

		if err := ex.Exec(ctx, script); err != nil {
			return err
		}
	}

	return nil
}

func joinScripts(scripts []string) string {
	var ms bytes.Buffer

	for i := range scripts {
		ms.WriteString(scripts[i])

		if !strings.HasSuffix(scripts[i], ";") {
			ms.WriteString(";")
		}

		if i < len(scripts)-1 {
			ms.WriteString("\n")
		}
	}

	return ms.String()
}
