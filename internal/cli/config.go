package cli

import (
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/userfrosting/migrator/internal/source"
	"github.com/userfrosting/migrator/repository"
	"github.com/xo/dburl"
	"gopkg.in/yaml.v2"
)

const ProductionEnv = "production"

var (
	ErrConnectionNotDefined = errors.New("database connection is not defined")
	ErrNoConnections        = errors.New("no database connections were defined")
	ErrUnsupportedDriver    = errors.New("database driver is not supported")
)

type (
	Config struct {
		Env               string
		DefaultConnection string
		Connections       map[string]string
		MigrationsTable   string
		MigrationsFolder  string
		Charset           string
	}

	migrations struct {
		Env               string            `yaml:"env"`
		DefaultConnection string            `yaml:"default_connection"`
		Connections       map[string]string `yaml:"connections"`
		Table             string            `yaml:"table"`
		LocalFolder       string            `yaml:"local_folder"`
		Charset           string            `yaml:"charset"`
	}

	configFile struct {
		Version    string     `yaml:"version"`
		Migrations migrations `yaml:"migrations"`
	}
)

const configFileStub = `version: "1"
migrations:
  env: "%%APP_ENV%%"
  default_connection: main
  connections:
    main: "%%DATABASE_URL%%"
  table: migrations
  local_folder: ./migrations
  charset: utf8mb4
`

func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "could not open migrator configuration file")
	}

	defer f.Close()

	return parseConfig(f)
}

func parseConfig(r io.Reader) (Config, error) {
	var cfg Config

	b, err := ioutil.ReadAll(r)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read migrator configuration file")
	}

	var cfgFile configFile
	if err := yaml.Unmarshal(b, &cfgFile); err != nil {
		return cfg, errors.Wrap(err, "could not parse migrator configuration file")
	}

	cfg.Env = fromEnv(cfgFile.Migrations.Env)
	cfg.DefaultConnection = fromEnv(cfgFile.Migrations.DefaultConnection)
	cfg.MigrationsTable = fromEnv(cfgFile.Migrations.Table)
	cfg.MigrationsFolder = fromEnv(cfgFile.Migrations.LocalFolder)
	cfg.Charset = fromEnv(cfgFile.Migrations.Charset)

	cfg.Connections = make(map[string]string, len(cfgFile.Migrations.Connections))
	for name, url := range cfgFile.Migrations.Connections {
		cfg.Connections[name] = fromEnv(url)
	}

	if len(cfg.Connections) == 0 {
		return cfg, ErrNoConnections
	}

	if cfg.MigrationsTable == "" {
		cfg.MigrationsTable = repository.DefaultTable
	}

	if cfg.MigrationsFolder == "" {
		cfg.MigrationsFolder = source.DefaultMigrationsFolder
	}

	if cfg.DefaultConnection == "" && len(cfg.Connections) == 1 {
		for name := range cfg.Connections {
			cfg.DefaultConnection = name
		}
	}

	return cfg, nil
}

// ConnectionNames returns the configured connection names in lexical order.
func (cfg Config) ConnectionNames() []string {
	names := make([]string, 0, len(cfg.Connections))
	for name := range cfg.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connection parses the url of the named connection, or of the default one
// when name is empty.
func (cfg Config) Connection(name string) (*dburl.URL, error) {
	if name == "" {
		name = cfg.DefaultConnection
	}

	raw, ok := cfg.Connections[name]
	if !ok {
		return nil, errors.Wrapf(ErrConnectionNotDefined, "[%s], defined connections: %s", name, strings.Join(cfg.ConnectionNames(), ", "))
	}

	if raw == "" {
		return nil, errors.Wrapf(ErrConnectionNotDefined, "[%s] has an empty url", name)
	}

	u, err := dburl.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse url of connection [%s]", name)
	}

	return u, nil
}

func (cfg Config) IsProduction() bool {
	return strings.EqualFold(cfg.Env, ProductionEnv)
}

func InitCfg(path string) error {
	if FileExists(path) {
		return errors.Errorf("config file [%s] already exists", path)
	}

	if err := ioutil.WriteFile(path, []byte(configFileStub), 0644); err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	return nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

func fromEnv(value string) string {
	if len(value) > 4 && strings.HasPrefix(value, "%%") && strings.HasSuffix(value, "%%") {
		return os.Getenv(strings.Trim(value, "%"))
	}

	return value
}
