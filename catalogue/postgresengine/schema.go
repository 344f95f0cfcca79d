package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

// EnsureSchema creates the tables and indexes the Engine needs, if they do
// not exist yet. Statements run one at a time so the bootstrap works the same
// on every adapter.
//
// The schema carries the two invariants the lending transactions rely on:
// the check constraint 0 <= available_copies <= total_copies, and the partial
// unique index allowing at most one active borrow record per (user, book).
func (e Engine) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			contact TEXT,
			role TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'librarian')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, e.tables.Users),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			isbn TEXT UNIQUE,
			category TEXT,
			year_published INT,
			total_copies INT NOT NULL DEFAULT 1 CHECK (total_copies >= 0),
			available_copies INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (available_copies >= 0 AND available_copies <= total_copies)
		)`, e.tables.Books),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			book_id BIGINT NOT NULL,
			borrow_date TIMESTAMPTZ NOT NULL DEFAULT now(),
			due_date TIMESTAMPTZ NOT NULL,
			return_date TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'borrowed' CHECK (status IN ('borrowed', 'returned'))
		)`, e.tables.BorrowRecords),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_active_loan
			ON %s (user_id, book_id) WHERE status = 'borrowed'`,
			e.tables.BorrowRecords, e.tables.BorrowRecords),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user
			ON %s (user_id)`, e.tables.BorrowRecords, e.tables.BorrowRecords),
	}

	for _, statement := range statements {
		if _, err := e.db.Exec(ctx, statement); err != nil {
			e.logError(ctx, logMsgDBExecFailed, logAttrError, err.Error(), logAttrQuery, statement)
			return errors.Join(catalogue.ErrExecFailed, err)
		}
	}

	e.logOperation(ctx, "schema ensured")

	return nil
}
