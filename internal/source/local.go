package source

import (
	"bufio"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/executor"
	"github.com/userfrosting/migrator/internal/logger"
	"github.com/userfrosting/migrator/migration"
)

const DefaultMigrationsFolder = "./migrations"

const (
	sqlExtension     = ".sql"
	upFileSuffix     = ".up.sql"
	downFileSuffix   = ".down.sql"
	dependsDirective     = "depends:"
	transactionDirective = "transaction"
)

var isolationLevels = map[string]executor.ISO{
	"":                executor.Default,
	"serializable":    executor.Serializable,
	"repeatable read": executor.RepeatableRead,
	"read committed":  executor.ReadCommitted,
}

var ErrUnknownIsolationLevel = errors.New("unknown transaction isolation level")

// header holds the directives read from the comment lines of an up file.
type header struct {
	dependencies  []string
	transactional bool
	isolation     executor.ISO
}

var nameRegexp = regexp.MustCompile(`^\w[\w-]*$`)

// LocalFolder reads <name>.up.sql and optional <name>.down.sql pairs from a
// folder. Up files declare dependencies with header lines such as
// "-- depends: create_users", and "-- transaction" or
// "-- transaction: serializable" runs each file in one transaction.
type LocalFolder struct {
	folder string
	lg     logger.Logger
}

var _ Source = (*LocalFolder)(nil)

func NewLocalFolder(folder string, lg logger.Logger) *LocalFolder {
	if folder == "" {
		folder = DefaultMigrationsFolder
	}

	if lg == nil {
		lg = &logger.NullLogger{}
	}

	return &LocalFolder{folder: folder, lg: lg}
}

func (lf *LocalFolder) IsValid() bool {
	info, err := os.Stat(lf.folder)
	if os.IsNotExist(err) {
		return false
	}

	return err == nil && info.IsDir()
}

func (lf *LocalFolder) AlreadyExists(name string) bool {
	info, err := os.Stat(filepath.Join(lf.folder, name+upFileSuffix))
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// Create writes an up file, and a down file when withDown is set, with the
// dependency headers already filled in.
func (lf *LocalFolder) Create(name string, dependencies []string, withDown bool) (*migration.SQL, error) {
	if !nameRegexp.MatchString(name) {
		return nil, errors.Wrapf(migration.ErrInvalidMigrationName, "[%s]", name)
	}

	if lf.AlreadyExists(name) {
		return nil, errors.Wrapf(migration.ErrDuplicateMigration, "[%s]", name)
	}

	var header strings.Builder
	for _, dep := range dependencies {
		header.WriteString(fmt.Sprintf("-- %s %s\n", dependsDirective, dep))
	}

	upFilename := filepath.Join(lf.folder, name+upFileSuffix)
	if err := ioutil.WriteFile(upFilename, []byte(header.String()), 0644); err != nil {
		return nil, errors.Wrapf(err, "could not create file [%s]", upFilename)
	}

	if withDown {
		downFilename := filepath.Join(lf.folder, name+downFileSuffix)
		if err := ioutil.WriteFile(downFilename, nil, 0644); err != nil {
			return nil, errors.Wrapf(err, "could not create file [%s]", downFilename)
		}
	}

	lf.lg.Successf("created migration %s in %s", name, lf.folder)

	return migration.NewSQL(name, dependencies, nil, nil), nil
}

// Select reads every migration of the folder, sorted by name.
func (lf *LocalFolder) Select(ctx context.Context) ([]*migration.SQL, error) {
	names, err := lf.getAllNamesFromFolder()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	migrationsCh := make(chan *migration.SQL)
	errorsCh := make(chan error)
	var wg sync.WaitGroup

	for name, hasDown := range names {
		wg.Add(1)
		go func(name string, hasDown bool) {
			defer wg.Done()
			m, err := lf.readOne(name, hasDown)
			if err != nil {
				mErr := errors.Wrapf(err, "with name %s", name)
				lf.lg.Error(mErr)
				select {
				case errorsCh <- mErr:
				case <-ctx.Done():
				}
				return
			}

			select {
			case migrationsCh <- m:
			case <-ctx.Done():
			}
		}(name, hasDown)
	}

	go func() {
		wg.Wait()
		close(migrationsCh)
	}()

	result := make([]*migration.SQL, 0, len(names))

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-errorsCh:
			return nil, err
		case m, ok := <-migrationsCh:
			if !ok {
				sort.Slice(result, func(i, j int) bool {
					return result[i].Name() < result[j].Name()
				})
				return result, nil
			}

			result = append(result, m)
		}
	}
}

// getAllNamesFromFolder maps each migration name to whether it has a down file.
func (lf *LocalFolder) getAllNamesFromFolder() (map[string]bool, error) {
	files, err := ioutil.ReadDir(lf.folder)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read migrations from folder %s", lf.folder)
	}

	ups := make(map[string]struct{})
	downs := make(map[string]struct{})

	for i := range files {
		if files[i].IsDir() || filepath.Ext(files[i].Name()) != sqlExtension {
			continue
		}

		name, isUp, err := convertLocalFilePathToName(files[i].Name())
		if err != nil {
			return nil, errors.Wrapf(err, "file %s is not a valid migration name", files[i].Name())
		}

		if isUp {
			ups[name] = struct{}{}
		} else {
			downs[name] = struct{}{}
		}
	}

	names := make(map[string]bool, len(ups))
	for name := range ups {
		_, hasDown := downs[name]
		names[name] = hasDown
	}

	for name := range downs {
		if _, ok := ups[name]; !ok {
			return nil, errors.Wrapf(ErrMissingUpFile, "[%s]", name)
		}
	}

	return names, nil
}

func (lf *LocalFolder) readOne(name string, hasDown bool) (*migration.SQL, error) {
	upContents, err := ioutil.ReadFile(filepath.Join(lf.folder, name+upFileSuffix))
	if err != nil {
		return nil, err
	}

	h, migrate, err := parseScript(string(upContents))
	if err != nil {
		return nil, err
	}

	var rollback []string
	if hasDown {
		downContents, err := ioutil.ReadFile(filepath.Join(lf.folder, name+downFileSuffix))
		if err != nil {
			return nil, err
		}

		_, rollback, err = parseScript(string(downContents))
		if err != nil {
			return nil, err
		}
	}

	m := migration.NewSQL(name, h.dependencies, migrate, rollback)
	if h.transactional {
		m.InTransaction(executor.Isolation(h.isolation))
	}

	return m, nil
}

// parseScript collects header directives and splits the rest into
// statements at lines ending with a semicolon. Comment lines are dropped.
func parseScript(contents string) (header, []string, error) {
	var h header
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(contents))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "--") {
			if err := h.parse(strings.TrimSpace(strings.TrimPrefix(line, "--"))); err != nil {
				return h, nil, err
			}
			continue
		}

		if line == "" {
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)

		if strings.HasSuffix(line, ";") {
			flush()
		}
	}

	if err := scanner.Err(); err != nil {
		return h, nil, errors.Wrap(err, "could not read migration script")
	}

	flush()

	return h, statements, nil
}

func (h *header) parse(comment string) error {
	switch {
	case strings.HasPrefix(comment, dependsDirective):
		for _, dep := range strings.Split(strings.TrimPrefix(comment, dependsDirective), ",") {
			if dep = strings.TrimSpace(dep); dep != "" {
				h.dependencies = append(h.dependencies, dep)
			}
		}
	case comment == transactionDirective || strings.HasPrefix(comment, transactionDirective+":"):
		level := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(comment, transactionDirective), ":")))
		iso, ok := isolationLevels[level]
		if !ok {
			return errors.Wrapf(ErrUnknownIsolationLevel, "[%s]", level)
		}

		h.transactional = true
		h.isolation = iso
	}

	return nil
}

func convertLocalFilePathToName(path string) (string, bool, error) {
	base := filepath.Base(path)

	var name string
	var isUp bool

	switch {
	case strings.HasSuffix(base, upFileSuffix):
		name, isUp = strings.TrimSuffix(base, upFileSuffix), true
	case strings.HasSuffix(base, downFileSuffix):
		name = strings.TrimSuffix(base, downFileSuffix)
	default:
		return "", false, ErrNotAMigrationFile
	}

	if !nameRegexp.MatchString(name) {
		return "", false, ErrNotAMigrationFile
	}

	return name, isUp, nil
}
