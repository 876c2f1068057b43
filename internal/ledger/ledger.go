// Package ledger records every analysis run (status, counts, artifact keys)
// so earlier results can be listed and compared. It opens the configured
// persistence driver behind the core.Store contract.
package ledger

import (
	"context"
	"fmt"
	"os"
	"strings"

	memstore "orthoset/internal/infra/persistence/memory"
	"orthoset/internal/infra/persistence/postgres"
	"orthoset/internal/infra/persistence/sqlite"
	"orthoset/internal/ledger/core"
)

type (
	Run    = core.Run
	Store  = core.Store
	Status = core.Status
	Driver = core.Driver
)

const (
	DriverSQLite    = core.DriverSQLite
	DriverPostgres  = core.DriverPostgres
	DriverMemory    = core.DriverMemory
	StatusSucceeded = core.StatusSucceeded
	StatusFailed    = core.StatusFailed
)

// ErrRunNotFound is returned by Get for unknown run IDs.
var ErrRunNotFound = core.ErrRunNotFound

// Config selects the ledger backend. DSN is a file path for sqlite and a
// connection string for postgres.
type Config struct {
	Driver Driver `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// FromEnv overlays ORTHOSET_LEDGER_DRIVER and ORTHOSET_LEDGER_DSN on cfg.
func FromEnv(cfg Config, getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("ORTHOSET_LEDGER_DRIVER"); v != "" {
		cfg.Driver = Driver(strings.ToLower(v))
	}
	if v := getenv("ORTHOSET_LEDGER_DSN"); v != "" {
		cfg.DSN = v
	}
	return cfg
}

// Open returns the store named by cfg.Driver (default sqlite).
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return sqlite.NewStore(ctx, cfg.DSN)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.DSN)
	case DriverMemory:
		return memstore.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}
