package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/logrusorgru/aurora/v3"
	"github.com/pkg/errors"
	"github.com/userfrosting/migrator"
	"github.com/userfrosting/migrator/internal/cli"
)

const defaultConfigFile = "migrator.yaml"

type command func(ctx context.Context, app *cli.App, cfg cli.ActionConfig) error

func migrate(ctx context.Context, app *cli.App, cfg cli.ActionConfig) error {
	report, err := app.Migrate(ctx, cfg)
	printReport("migrated", report, cfg)
	return err
}

func rollback(ctx context.Context, app *cli.App, cfg cli.ActionConfig) error {
	report, err := app.Rollback(ctx, cfg)
	printReport("rolled back", report, cfg)
	return err
}

func reset(ctx context.Context, app *cli.App, cfg cli.ActionConfig) error {
	report, err := app.Reset(ctx, cfg)
	printReport("rolled back", report, cfg)
	return err
}

func refresh(ctx context.Context, app *cli.App, cfg cli.ActionConfig) error {
	down, up, err := app.Refresh(ctx, cfg)
	printReport("rolled back", down, cfg)
	printReport("migrated", up, cfg)
	return err
}

func clean(ctx context.Context, app *cli.App, cfg cli.ActionConfig) error {
	removed, err := app.Clean(ctx, cfg)
	for _, name := range removed {
		fmt.Println(aurora.Green("migrator: "), "removed stale", name)
	}
	return err
}

func status(ctx context.Context, app *cli.App, _ cli.ActionConfig) error {
	statuses, err := app.Status(ctx)
	if err != nil {
		return err
	}

	for _, s := range statuses {
		switch {
		case s.Stale:
			fmt.Println(aurora.Yellow("stale    "), s.Migration, aurora.Gray(12, fmt.Sprintf("batch %d", s.Batch)))
		case s.Applied:
			fmt.Println(aurora.Green("applied  "), s.Migration, aurora.Gray(12, fmt.Sprintf("batch %d", s.Batch)))
		default:
			fmt.Println(aurora.Red("pending  "), s.Migration)
		}
	}

	return nil
}

func printReport(done string, report cli.Report, cfg cli.ActionConfig) {
	if cfg.Pretend {
		for _, c := range report.Pretended {
			fmt.Println(aurora.Cyan("migrator: "), "would run", c.Migration)
			for _, stmt := range c.Statements {
				fmt.Println("    ", stmt)
			}
		}
		return
	}

	if len(report.Migrations) == 0 {
		fmt.Println(aurora.Green("migrator: "), "Nothing to do")
		return
	}

	for _, name := range report.Migrations {
		fmt.Println(aurora.Green("migrator: "), done, name)
	}
}

func selectCommand(ops map[string]*bool) (string, error) {
	var selected string
	for name, on := range ops {
		if !*on {
			continue
		}

		if selected != "" {
			return "", errors.Errorf("only one command can run at a time, got -%s and -%s", selected, name)
		}
		selected = name
	}

	if selected == "" {
		return "", errors.New("unknown command")
	}

	return selected, nil
}

func createMigration(configFile, name, depends string, withDown, verbose bool) error {
	cfg, err := cli.LoadConfig(configFile)
	if err != nil {
		return err
	}

	var dependencies []string
	for _, dep := range strings.Split(depends, ",") {
		if dep = strings.TrimSpace(dep); dep != "" {
			dependencies = append(dependencies, dep)
		}
	}

	_, err = cli.CreateMigration(cfg, cli.Terminal{Printer: log.New(os.Stdout, "", 0), Verbose: verbose}, name, dependencies, withDown)
	return err
}

func run(configFile, connection string, cmd command, cfg cli.ActionConfig, verbose bool) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	app, closer, createErr := cli.NewFromYaml(ctx, configFile, connection, cli.Terminal{
		In:      os.Stdin,
		Out:     os.Stdout,
		Printer: log.New(os.Stdout, "", 0),
		Verbose: verbose,
	})
	if createErr != nil {
		return createErr
	}

	defer func() {
		if closeErr := closer(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return cmd(ctx, app, cfg)
}

func main() {
	migrateCmd := flag.Bool("migrate", false, "run the pending migrations")
	rollbackCmd := flag.Bool("rollback", false, "rollback the last batch of migrations")
	resetCmd := flag.Bool("reset", false, "rollback every applied migration")
	statusCmd := flag.Bool("status", false, "show applied, pending and stale migrations")
	cleanCmd := flag.Bool("clean", false, "remove the records of stale migrations")
	refreshCmd := flag.Bool("refresh", false, "rollback the last batches and migrate again")
	initCmd := flag.Bool("init", false, "create a configuration file")
	create := flag.String("create", "", "create the files of a new migration with this name")
	depends := flag.String("depends", "", "comma separated dependencies of the created migration")
	withDown := flag.Bool("with-down", true, "also create the down file of the created migration")

	configFile := flag.String("config", defaultConfigFile, "configuration file")
	connection := flag.String("database", "", "connection name from the configuration file")
	step := flag.Bool("step", false, "give each migration its own batch")
	steps := flag.Int("steps", 1, "number of batches to rollback")
	pretend := flag.Bool("pretend", false, "print the statements instead of running them")
	force := flag.Bool("force", false, "skip the confirmation in production")
	verbose := flag.Bool("verbose", false, "print executed statements and debug output")

	flag.Parse()

	if *initCmd {
		if err := cli.InitCfg(*configFile); err != nil {
			fmt.Println(aurora.Red("migrator: "), err.Error())
			os.Exit(1)
		}

		fmt.Println(aurora.Green("migrator: "), "created", *configFile)
		os.Exit(0)
	}

	if *create != "" {
		if err := createMigration(*configFile, *create, *depends, *withDown, *verbose); err != nil {
			fmt.Println(aurora.Red("migrator: "), err.Error())
			os.Exit(1)
		}

		fmt.Println(aurora.Green("migrator: "), "created migration", *create)
		os.Exit(0)
	}

	commands := map[string]command{
		migrator.OperationMigrate:  migrate,
		migrator.OperationRollback: rollback,
		migrator.OperationReset:    reset,
		migrator.OperationRefresh:  refresh,
		migrator.OperationClean:    clean,
		"status":                   status,
	}

	name, err := selectCommand(map[string]*bool{
		migrator.OperationMigrate:  migrateCmd,
		migrator.OperationRollback: rollbackCmd,
		migrator.OperationReset:    resetCmd,
		migrator.OperationRefresh:  refreshCmd,
		migrator.OperationClean:    cleanCmd,
		"status":                   statusCmd,
	})
	if err != nil {
		fmt.Println(aurora.Red("migrator: "), err.Error())
		os.Exit(1)
	}

	cfg := cli.ActionConfig{
		Step:    *step,
		Steps:   *steps,
		Pretend: *pretend,
		Force:   *force,
	}

	if err := run(*configFile, *connection, commands[name], cfg, *verbose); err != nil {
		fmt.Println(aurora.Red("migrator: "), err.Error())
		os.Exit(1)
	}

	fmt.Println(aurora.Green("migrator: "), "all done")
	os.Exit(0)
}
