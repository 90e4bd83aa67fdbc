package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator"
	"github.com/userfrosting/migrator/internal/logger"
	"github.com/userfrosting/migrator/internal/source"
	"github.com/userfrosting/migrator/migration"
)

var (
	ErrMigrationAlreadyExists = errors.New("migration already exists")
	ErrFolderInvalid          = errors.New("migrations folder is invalid")
)

type (
	CloserFunc func() error

	ActionConfig struct {
		Step    bool
		Steps   int
		Pretend bool
		Force   bool
	}

	// Report is what an operation did, or would do when pretending.
	Report struct {
		Migrations []string
		Pretended  migrator.Pretended
	}

	Terminal struct {
		In      io.Reader
		Out     io.Writer
		Printer logger.Printer
		Verbose bool
	}

	App struct {
		migrator *migrator.Migrator
	}
)

func NewFromYaml(ctx context.Context, path, connection string, term Terminal) (*App, CloserFunc, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	return New(ctx, cfg, connection, term)
}

// New reads the migrations folder and connects to the selected connection.
// In production every sensitive operation is confirmed on the terminal unless
// it is forced.
func New(ctx context.Context, cfg Config, connection string, term Terminal) (*App, CloserFunc, error) {
	s := source.NewLocalFolder(cfg.MigrationsFolder, newLogger(term))
	if !s.IsValid() {
		return nil, nil, errors.Wrapf(ErrFolderInvalid, "[%s]", cfg.MigrationsFolder)
	}

	registry, err := source.Registry(ctx, s)
	if err != nil {
		return nil, nil, err
	}

	var confirm migrator.Confirmer
	if cfg.IsProduction() {
		confirm = Prompt(term.In, term.Out)
	}

	m, closer, err := createMigrator(cfg, connection, registry, confirm, term.Printer, term.Verbose)
	if err != nil {
		return nil, nil, err
	}

	return NewApp(m), CloserFunc(closer), nil
}

// CreateMigration writes the files of a new migration into the configured
// folder. It does not need a database connection.
func CreateMigration(cfg Config, term Terminal, name string, dependencies []string, withDown bool) (*migration.SQL, error) {
	s := source.NewLocalFolder(cfg.MigrationsFolder, newLogger(term))
	if !s.IsValid() {
		return nil, errors.Wrapf(ErrFolderInvalid, "[%s]", cfg.MigrationsFolder)
	}

	if s.AlreadyExists(name) {
		return nil, errors.Wrapf(ErrMigrationAlreadyExists, "name [%s]", name)
	}

	return s.Create(name, dependencies, withDown)
}

func newLogger(term Terminal) logger.Logger {
	if term.Printer == nil {
		return &logger.NullLogger{}
	}

	return logger.NewColorLogger(term.Printer, false, term.Verbose)
}

func NewApp(m *migrator.Migrator) *App {
	return &App{migrator: m}
}

// Prompt asks on out and reads the answer from in; anything but yes declines.
func Prompt(in io.Reader, out io.Writer) migrator.Confirmer {
	reader := bufio.NewReader(in)

	return func(operation string, migrations []string) bool {
		fmt.Fprintf(out, "Application is in production. The %s will affect:\n", operation)
		for _, name := range migrations {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		fmt.Fprint(out, "Do you really wish to continue? [y/N] ")

		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}

		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

func (app *App) Migrator() *migrator.Migrator {
	return app.migrator
}

func (app *App) Migrate(ctx context.Context, cfg ActionConfig) (Report, error) {
	if cfg.Pretend {
		pretended, err := app.migrator.PretendToMigrate(ctx)
		return Report{Migrations: pretended.Names(), Pretended: pretended}, err
	}

	migrated, err := app.migrator.Migrate(ctx, migrator.CreateConfigurators(cfg.Step, cfg.Force)...)
	return Report{Migrations: migrated}, err
}

// Rollback reverts the last batch, or the last Steps batches.
func (app *App) Rollback(ctx context.Context, cfg ActionConfig) (Report, error) {
	steps := cfg.Steps
	if steps < 1 {
		steps = 1
	}

	if cfg.Pretend {
		pretended, err := app.migrator.PretendToRollback(ctx, steps)
		return Report{Migrations: pretended.Names(), Pretended: pretended}, err
	}

	rolledBack, err := app.migrator.Rollback(ctx, steps, migrator.CreateConfigurators(false, cfg.Force)...)
	return Report{Migrations: rolledBack}, err
}

func (app *App) Reset(ctx context.Context, cfg ActionConfig) (Report, error) {
	if cfg.Pretend {
		pretended, err := app.migrator.PretendToReset(ctx)
		return Report{Migrations: pretended.Names(), Pretended: pretended}, err
	}

	reset, err := app.migrator.Reset(ctx, migrator.CreateConfigurators(false, cfg.Force)...)
	return Report{Migrations: reset}, err
}

// Refresh rolls back the last batch, or the last Steps batches, and migrates
// again. The first report is the rollback half.
func (app *App) Refresh(ctx context.Context, cfg ActionConfig) (Report, Report, error) {
	steps := cfg.Steps
	if steps < 1 {
		steps = 1
	}

	if cfg.Pretend {
		down, up, err := app.migrator.PretendToRefresh(ctx, steps)
		return Report{Migrations: down.Names(), Pretended: down}, Report{Migrations: up.Names(), Pretended: up}, err
	}

	rolledBack, migrated, err := app.migrator.Refresh(ctx, steps, migrator.CreateConfigurators(cfg.Step, cfg.Force)...)
	return Report{Migrations: rolledBack}, Report{Migrations: migrated}, err
}

func (app *App) Clean(ctx context.Context, cfg ActionConfig) ([]string, error) {
	return app.migrator.Clean(ctx, migrator.CreateConfigurators(false, cfg.Force)...)
}

func (app *App) Status(ctx context.Context) ([]migrator.Status, error) {
	return app.migrator.Status(ctx)
}
