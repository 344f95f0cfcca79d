// Package postgreswrapper provides test wrappers around the storage engine
// for each supported database adapter.
//
// Integration tests require a running Postgres reachable via the
// TEST_DATABASE_URL environment variable; without it they are skipped. The
// ADAPTER_TYPE environment variable selects the adapter under test
// (pgx.pool, sql.db, or sqlx.db; pgx.pool is the default).
package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx
	"github.com/stretchr/testify/assert"

	"github.com/campuslib/library-catalogue-go/catalogue/postgresengine"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

const envTestDatabaseURL = "TEST_DATABASE_URL"

// Wrapper interface to abstract over different engine types
type Wrapper interface {
	GetEngine() postgresengine.Engine
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	engine postgresengine.Engine
}

func (e *PGXPoolWrapper) GetEngine() postgresengine.Engine {
	return e.engine
}

func (e *PGXPoolWrapper) Close() {
	e.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db     *sql.DB
	engine postgresengine.Engine
}

func (e *SQLDBWrapper) GetEngine() postgresengine.Engine {
	return e.engine
}

func (e *SQLDBWrapper) Close() {
	_ = e.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db     *sqlx.DB
	engine postgresengine.Engine
}

func (e *SQLXWrapper) GetEngine() postgresengine.Engine {
	return e.engine
}

func (e *SQLXWrapper) Close() {
	_ = e.db.Close() // ignore error
}

// CreateWrapper creates the appropriate wrapper based on the environment,
// skipping the test when no test database is configured. The schema is
// ensured before the wrapper is returned.
func CreateWrapper(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	databaseURL := os.Getenv(envTestDatabaseURL)
	if databaseURL == "" {
		t.Skipf("%s is not set, skipping database integration test", envTestDatabaseURL)
	}

	wrapper := createWrapper(t, databaseURL, options...)

	err := wrapper.GetEngine().EnsureSchema(context.Background())
	assert.NoError(t, err, "error ensuring schema in test setup")

	return wrapper
}

func createWrapper(t testing.TB, databaseURL string, options ...postgresengine.Option) Wrapper {
	t.Helper()

	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		poolCfg, err := pgxpool.ParseConfig(databaseURL)
		assert.NoError(t, err, "error parsing DB config in test setup")

		connPool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		engine, err := postgresengine.NewEngineFromPGXPool(connPool, options...)
		assert.NoError(t, err, "error creating engine")

		return &PGXPoolWrapper{pool: connPool, engine: engine}

	case typeSQLDB:
		db, err := sql.Open("postgres", databaseURL)
		assert.NoError(t, err, "error opening DB connection in test setup")

		engine, err := postgresengine.NewEngineFromSQLDB(db, options...)
		assert.NoError(t, err, "error creating engine")

		return &SQLDBWrapper{db: db, engine: engine}

	case typeSQLXDB:
		db, err := sqlx.Open("postgres", databaseURL)
		assert.NoError(t, err, "error opening DB connection in test setup")

		engine, err := postgresengine.NewEngineFromSQLX(db, options...)
		assert.NoError(t, err, "error creating engine")

		return &SQLXWrapper{db: db, engine: engine}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// CleanUp truncates the catalogue tables for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	const truncate = "TRUNCATE TABLE borrow_records, books, users RESTART IDENTITY CASCADE"

	switch e := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := e.pool.Exec(context.Background(), truncate)
		assert.NoError(t, err, "error cleaning up the catalogue tables")

	case *SQLDBWrapper:
		_, err := e.db.Exec(truncate)
		assert.NoError(t, err, "error cleaning up the catalogue tables")

	case *SQLXWrapper:
		_, err := e.db.Exec(truncate)
		assert.NoError(t, err, "error cleaning up the catalogue tables")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", e))
	}
}

// CountActiveLoans reports how many active borrow records exist for the given
// book, for asserting lending invariants from outside the engine.
func CountActiveLoans(t testing.TB, wrapper Wrapper, bookID int64) int {
	t.Helper()

	const query = "SELECT count(*) FROM borrow_records WHERE book_id = $1 AND status = 'borrowed'"

	var cnt int
	var err error

	switch e := wrapper.(type) {
	case *PGXPoolWrapper:
		row := e.pool.QueryRow(context.Background(), query, bookID)
		err = row.Scan(&cnt)

	case *SQLDBWrapper:
		row := e.db.QueryRow(query, bookID)
		err = row.Scan(&cnt)

	case *SQLXWrapper:
		row := e.db.QueryRow(query, bookID)
		err = row.Scan(&cnt)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", e))
	}

	assert.NoError(t, err, "error counting active loans")

	return cnt
}
