// Package config loads the plano.toml configuration used by the CLI and the
// server.
//
//	[log]
//	level = "info"      # debug, info, warn, error
//	format = "text"     # text or json
//
//	[engine]
//	snapshots = false
//	concurrency = 4
//	max_iterations = 1000
//	choose_policy = "select"   # or first_completed
//
//	[store]
//	backend = "sqlite"  # memory, sqlite, postgres, redis, mongo
//	dsn = "plano.db"
//
//	[server]
//	addr = ":8080"
//
//	[worker]
//	concurrency = 2
//	queue_size = 256
//
// Environment variables override the file, see ApplyEnvOverrides.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/internal/persistence"
)

// Config is the complete plano configuration.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Engine EngineConfig `toml:"engine"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Worker WorkerConfig `toml:"worker"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// EngineConfig holds the runner options applied to every compiled plan.
type EngineConfig struct {
	Snapshots     bool   `toml:"snapshots"`
	Concurrency   int    `toml:"concurrency"`
	MaxIterations int    `toml:"max_iterations"`
	ChoosePolicy  string `toml:"choose_policy"`
}

// StoreConfig selects the run store. DSN is the SQLite path, the Postgres
// connection string or the MongoDB URI; Addr is the Redis address.
type StoreConfig struct {
	Backend  string `toml:"backend"`
	DSN      string `toml:"dsn"`
	Addr     string `toml:"addr"`
	Database string `toml:"database"`
	Prefix   string `toml:"prefix"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// WorkerConfig sizes the pool that executes runs submitted in the
// background.
type WorkerConfig struct {
	Concurrency int `toml:"concurrency"`
	QueueSize   int `toml:"queue_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{Concurrency: 1, ChoosePolicy: "select"},
		Store:  StoreConfig{Backend: persistence.BackendMemory},
		Server: ServerConfig{Addr: ":8080"},
		Worker: WorkerConfig{Concurrency: 2, QueueSize: 256},
	}
}

// Load reads the TOML file at path over the defaults. Keys the file sets
// that plano does not know are an error, so typos do not go unnoticed.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnvOverrides applies PLANO_LOG_LEVEL, PLANO_STORE_BACKEND,
// PLANO_STORE_DSN, PLANO_STORE_ADDR, PLANO_SERVER_ADDR and
// PLANO_ENGINE_CONCURRENCY.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PLANO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PLANO_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("PLANO_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("PLANO_STORE_ADDR"); v != "" {
		c.Store.Addr = v
	}
	if v := os.Getenv("PLANO_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PLANO_ENGINE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Concurrency = n
		}
	}
}

// ValidationError is a problem with one configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	policies   = []string{"select", "first_completed"}
	backends   = []string{
		persistence.BackendMemory, persistence.BackendSQLite, persistence.BackendPostgres,
		persistence.BackendRedis, persistence.BackendMongo,
	}
)

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	oneOf := func(field, v string, allowed []string) {
		if !slices.Contains(allowed, strings.ToLower(v)) {
			errs = append(errs, ValidationError{field,
				fmt.Sprintf("invalid value %q, must be one of: %s", v, strings.Join(allowed, ", "))})
		}
	}
	notNegative := func(field string, n int) {
		if n < 0 {
			errs = append(errs, ValidationError{field, "must not be negative"})
		}
	}

	oneOf("log.level", c.Log.Level, logLevels)
	oneOf("log.format", c.Log.Format, logFormats)
	oneOf("engine.choose_policy", c.Engine.ChoosePolicy, policies)
	notNegative("engine.concurrency", c.Engine.Concurrency)
	notNegative("engine.max_iterations", c.Engine.MaxIterations)
	oneOf("store.backend", c.Store.Backend, backends)
	switch strings.ToLower(c.Store.Backend) {
	case persistence.BackendPostgres, persistence.BackendMongo:
		if c.Store.DSN == "" {
			errs = append(errs, ValidationError{"store.dsn", "required for the " + c.Store.Backend + " backend"})
		}
	}
	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{"server.addr", "must not be empty"})
	}
	notNegative("worker.concurrency", c.Worker.Concurrency)
	notNegative("worker.queue_size", c.Worker.QueueSize)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Options converts the engine section to runner options.
func (e EngineConfig) Options() []engine.Option {
	opts := []engine.Option{
		engine.WithSnapshots(e.Snapshots),
		engine.WithConcurrency(e.Concurrency),
		engine.WithMaxIterations(e.MaxIterations),
	}
	if strings.EqualFold(e.ChoosePolicy, engine.ChooseFirstCompleted.String()) {
		opts = append(opts, engine.WithChoosePolicy(engine.ChooseFirstCompleted))
	}
	return opts
}

// Options converts the store section for persistence.Open.
func (s StoreConfig) Options() persistence.Options {
	return persistence.Options{
		Backend:  strings.ToLower(s.Backend),
		DSN:      s.DSN,
		Addr:     s.Addr,
		Database: s.Database,
		Prefix:   s.Prefix,
	}
}
