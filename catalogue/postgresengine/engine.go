package postgresengine

import (
	"context"
	"database/sql"
	"math"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/campuslib/library-catalogue-go/catalogue"
	"github.com/campuslib/library-catalogue-go/catalogue/postgresengine/internal/adapters"
)

const (
	defaultBooksTableName         = "books"
	defaultBorrowRecordsTableName = "borrow_records"
	defaultUsersTableName         = "users"

	dialectPostgres = "postgres"

	logMsgBuildQueryFailed = "failed to build query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgDBExecFailed     = "database execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgBeginTxFailed    = "failed to begin transaction"
	logMsgCommitFailed     = "failed to commit transaction"
	logMsgRollbackFailed   = "failed to roll back transaction"
	logMsgSQLExecuted      = "executed sql for: "
	logMsgOperation        = "catalogue operation: "

	logAttrError      = "error"
	logAttrQuery      = "query"
	logAttrDurationMS = "duration_ms"
	logAttrBookID     = "book_id"
	logAttrUserID     = "user_id"
	logAttrRecordID   = "record_id"

	metricLendingDuration = "lending_operation_duration"
	metricLendingOutcome  = "lending_operation_outcome"
	labelOperation        = "operation"
	labelOutcome          = "outcome"
	outcomeSuccess        = "success"
	outcomeConflict       = "conflict"
	outcomeNotFound       = "not_found"
	outcomeError          = "error"

	colID              = "id"
	colTitle           = "title"
	colAuthor          = "author"
	colISBN            = "isbn"
	colCategory        = "category"
	colYearPublished   = "year_published"
	colTotalCopies     = "total_copies"
	colAvailableCopies = "available_copies"
	colCreatedAt       = "created_at"
	colUserID          = "user_id"
	colBookID          = "book_id"
	colBorrowDate      = "borrow_date"
	colDueDate         = "due_date"
	colReturnDate      = "return_date"
	colStatus          = "status"
	colUsername        = "username"
	colEmail           = "email"
	colPassword        = "password"
	colContact         = "contact"
	colRole            = "role"
)

// TableNames holds the table names used by the Engine.
type TableNames struct {
	Books         string
	BorrowRecords string
	Users         string
}

// Engine is the Postgres-backed store for the catalogue domain: book
// catalogue, borrow ledger, user accounts, and the lending transaction
// manager on top of them.
type Engine struct {
	db               adapters.DBAdapter
	tables           TableNames
	logger           catalogue.Logger
	contextualLogger catalogue.ContextualLogger
	metrics          catalogue.MetricsCollector
	now              func() time.Time
}

func newEngine(db adapters.DBAdapter, options ...Option) (Engine, error) {
	engine := Engine{
		db: db,
		tables: TableNames{
			Books:         defaultBooksTableName,
			BorrowRecords: defaultBorrowRecordsTableName,
			Users:         defaultUsersTableName,
		},
		now: time.Now,
	}

	for _, option := range options {
		if err := option(&engine); err != nil {
			return Engine{}, err
		}
	}

	return engine, nil
}

// NewEngineFromPGXPool creates a new Engine using a pgx pool with optional
// configuration.
func NewEngineFromPGXPool(pool *pgxpool.Pool, options ...Option) (Engine, error) {
	if pool == nil {
		return Engine{}, catalogue.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(pool), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional
// configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, catalogue.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional
// configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, catalogue.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

// closeRows safely closes database rows and logs any errors.
func (e Engine) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (e Engine) logQueryWithDuration(ctx context.Context, action string, sqlQuery string, duration time.Duration) {
	args := []any{logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}

	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (e Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}

	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

func (e Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
	}

	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

func (e Engine) logWarn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

// observeLending records duration and outcome for a lending operation.
func (e Engine) observeLending(operation string, outcome string, duration time.Duration) {
	if e.metrics == nil {
		return
	}

	e.metrics.RecordDuration(metricLendingDuration, duration, map[string]string{labelOperation: operation})
	e.metrics.IncrementCounter(metricLendingOutcome, map[string]string{labelOperation: operation, labelOutcome: outcome})
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
