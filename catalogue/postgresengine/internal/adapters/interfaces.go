package adapters

import "context"

// DBRunner defines the statement operations shared by a plain connection
// pool and an open transaction.
type DBRunner interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBAdapter defines the interface for database operations needed by the
// catalogue engine.
type DBAdapter interface {
	DBRunner
	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx is an open transaction. Statements issued through it run on the same
// connection, so row locks taken by one statement are held for the rest of
// the transaction. Rollback after a successful Commit is a no-op.
type DBTx interface {
	DBRunner
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
