// Package sqlopen opens a *sql.DB against PostgreSQL using either of the
// two drivers the teacher's go.mod carries: jackc/pgx/v5 (the default,
// registered under "pgx") or lib/pq (registered under "postgres", the
// database/sql driver name lib/pq itself registers). Both CLI commands
// (cmd/generate, cmd/applymigration) open their connections through it so
// an operator can pick the driver (e.g. a lib/pq-only environment that
// already trusts that driver's TLS/connection handling).
package sqlopen

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	Pgx   Driver = "pgx"
	LibPQ Driver = "postgres"
)

// Open opens dsn using driver, defaulting to Pgx when driver is empty.
func Open(driver Driver, dsn string) (*sql.DB, error) {
	if driver == "" {
		driver = Pgx
	}
	switch driver {
	case Pgx, LibPQ:
		db, err := sql.Open(string(driver), dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database with driver %q: %w", driver, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q: must be %q or %q", driver, Pgx, LibPQ)
	}
}
