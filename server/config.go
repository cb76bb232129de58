package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/remora"
	"github.com/dekarrin/remora/internal/store"
	"github.com/dekarrin/remora/internal/store/inmem"
	"github.com/dekarrin/remora/internal/store/sqlite"
)

// DefaultListen is the address a server listens on when none is configured.
const DefaultListen = "localhost:8080"

// DBType is the type of a Database connection.
type DBType string

func (dbt DBType) String() string {
	return string(dbt)
}

const (
	DatabaseNone     DBType = "none"
	DatabaseSQLite   DBType = "sqlite"
	DatabaseInMemory DBType = "inmem"
)

// ParseDBType parses a string found in a connection string into a DBType.
func ParseDBType(s string) (DBType, error) {
	sLower := strings.ToLower(s)

	switch sLower {
	case DatabaseSQLite.String():
		return DatabaseSQLite, nil
	case DatabaseInMemory.String():
		return DatabaseInMemory, nil
	default:
		return DatabaseNone, fmt.Errorf("DB type not one of 'sqlite' or 'inmem': %q", s)
	}
}

// Database contains configuration settings for connecting to a persistence
// layer.
type Database struct {
	// Type is the type of database the config refers to. It also determines
	// which of its other fields are valid.
	Type DBType

	// File is the path on disk to the database file. This is only applicable
	// for certain DB types: SQLite.
	File string
}

// UnmarshalText parses a connection string as with ParseDBConnString. It
// lets a Database be given as a string in a config file.
func (db *Database) UnmarshalText(text []byte) error {
	parsed, err := ParseDBConnString(string(text))
	if err != nil {
		return err
	}
	*db = parsed
	return nil
}

// MarshalText gives the connection string for db.
func (db Database) MarshalText() ([]byte, error) {
	if db.Type == DatabaseSQLite {
		return []byte(db.Type.String() + ":" + db.File), nil
	}
	return []byte(db.Type.String()), nil
}

// Connect performs all logic needed to connect to the configured DB and
// initialize the store for use.
func (db Database) Connect() (store.Store, error) {
	switch db.Type {
	case DatabaseInMemory:
		return inmem.NewDatastore(), nil
	case DatabaseSQLite:
		if dir := filepath.Dir(db.File); dir != "" {
			err := os.MkdirAll(dir, 0770)
			if err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}

		st, err := sqlite.NewDatastore(db.File)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}

		return st, nil
	case DatabaseNone:
		return nil, fmt.Errorf("cannot connect to 'none' DB")
	default:
		return nil, fmt.Errorf("unknown database type: %q", db.Type.String())
	}
}

// Validate returns an error if the Database does not have the correct fields
// set. Its type will be checked to ensure that it is a valid type to use and
// any fields necessary for connecting to that type of DB are also checked.
func (db Database) Validate() error {
	switch db.Type {
	case DatabaseInMemory:
		// nothing else to check
		return nil
	case DatabaseSQLite:
		if db.File == "" {
			return fmt.Errorf("File not set to path")
		}
		return nil
	case DatabaseNone:
		return fmt.Errorf("'none' DB is not valid")
	default:
		return fmt.Errorf("unknown database type: %q", db.Type.String())
	}
}

// ParseDBConnString parses a database connection string of the form
// "engine:params" (or just "engine" if no other params are required) into a
// valid Database config object. For example, "sqlite:data/remora.db" would give
// the DB type of DatabaseSQLite that stores persistence in the given file, and
// "inmem" would give the DB type of DatabaseInMemory.
func ParseDBConnString(s string) (Database, error) {
	var paramStr string
	dbParts := strings.SplitN(s, ":", 2)

	if len(dbParts) == 2 {
		paramStr = strings.TrimSpace(dbParts[1])
	}

	// parse the first section into a type, from there we can determine if
	// further params are required.
	dbEng, err := ParseDBType(strings.TrimSpace(dbParts[0]))
	if err != nil {
		return Database{}, fmt.Errorf("unsupported DB engine: %w", err)
	}

	switch dbEng {
	case DatabaseInMemory:
		// there cannot be any other options
		if paramStr != "" {
			return Database{}, fmt.Errorf("unsupported param(s) for in-memory DB engine: %s", paramStr)
		}

		return Database{Type: DatabaseInMemory}, nil
	case DatabaseSQLite:
		// there must be options
		if paramStr == "" {
			return Database{}, fmt.Errorf("sqlite DB engine requires path to DB file after ':'")
		}

		return Database{Type: DatabaseSQLite, File: paramStr}, nil
	default:
		// unknown
		return Database{}, fmt.Errorf("unknown DB engine: %q", dbEng.String())
	}
}

// ParserConfig holds the parser options sessions are parsed with. Zero values
// are replaced with the defaults.
type ParserConfig struct {
	MaxVersions int `toml:"max_versions"`
	Horizon     int `toml:"horizon"`
}

// Config is a configuration for a server. It contains all parameters that can
// be used to configure the operation of a RemoraServer.
type Config struct {

	// Listen is the address to listen on, in ADDRESS:PORT or :PORT format.
	Listen string `toml:"listen"`

	// DB is the configuration to use for connecting to the database. If
	// not provided, it will be set to a configuration for using an in-memory
	// persistence layer.
	DB Database `toml:"db"`

	// Parser holds the options sessions are parsed with.
	Parser ParserConfig `toml:"parser"`

	// Grammars are paths to grammar files whose languages are loaded at
	// startup in addition to the built-in ones. Languages that need an
	// external scanner cannot be loaded this way.
	Grammars []string `toml:"grammars"`
}

// LoadConfig reads a Config from the TOML file at path. Keys in the file that
// are not part of a Config are an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i := range undecoded {
			keys[i] = undecoded[i].String()
		}
		return Config{}, fmt.Errorf("%s: unknown key(s): %s", path, strings.Join(keys, ", "))
	}

	// grammar paths are relative to the config file
	base := filepath.Dir(path)
	for i := range cfg.Grammars {
		if !filepath.IsAbs(cfg.Grammars[i]) {
			cfg.Grammars[i] = filepath.Join(base, cfg.Grammars[i])
		}
	}

	return cfg, nil
}

// ParserOptions returns the options to create parsers with.
func (cfg Config) ParserOptions() remora.Options {
	opts := remora.DefaultOptions()
	if cfg.Parser.MaxVersions > 0 {
		opts.MaxVersions = cfg.Parser.MaxVersions
	}
	if cfg.Parser.Horizon > 0 {
		opts.Horizon = cfg.Parser.Horizon
	}
	return opts
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.Listen == "" {
		newCFG.Listen = DefaultListen
	}
	if newCFG.DB.Type == "" || newCFG.DB.Type == DatabaseNone {
		newCFG.DB = Database{Type: DatabaseInMemory}
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if _, _, err := SplitListen(cfg.Listen); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if err := cfg.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if cfg.Parser.MaxVersions < 0 {
		return fmt.Errorf("parser: max_versions must be positive, but is %d", cfg.Parser.MaxVersions)
	}
	if cfg.Parser.Horizon < 0 {
		return fmt.Errorf("parser: horizon must be positive, but is %d", cfg.Parser.Horizon)
	}

	return nil
}

// SplitListen splits a listen address in ADDRESS:PORT or :PORT format into
// its parts.
func SplitListen(listen string) (addr string, port int, err error) {
	bindParts := strings.SplitN(listen, ":", 2)
	if len(bindParts) != 2 {
		return "", 0, fmt.Errorf("%q is not in ADDRESS:PORT or :PORT format", listen)
	}

	addr = bindParts[0]
	port, err = strconv.Atoi(bindParts[1])
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("%q is not a valid port number", bindParts[1])
	}
	return addr, port, nil
}
