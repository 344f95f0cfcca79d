package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/campuslib/library-catalogue-go/catalogue"
	"github.com/campuslib/library-catalogue-go/catalogue/postgresengine/internal/adapters"
)

const (
	aliasRecords = "br"
	aliasBooks   = "b"
	aliasUsers   = "u"
)

// ListBorrowsByUser returns the borrower's full history joined with book
// title and author, newest first.
func (e Engine) ListBorrowsByUser(ctx context.Context, userID int64) ([]catalogue.BorrowHistoryEntry, error) {
	selectStmt := e.selectHistoryWithBooks().
		Where(goqu.I(aliasRecords + "." + colUserID).Eq(userID)).
		Order(goqu.I(aliasRecords + "." + colBorrowDate).Desc())

	return e.queryHistory(ctx, "list borrows by user", selectStmt, false)
}

// ListAllBorrows returns every borrower's history joined with book and
// account details, newest first. Privileged: the transport must gate it.
func (e Engine) ListAllBorrows(ctx context.Context) ([]catalogue.BorrowHistoryEntry, error) {
	selectStmt := e.selectHistoryWithBooks().
		Join(
			goqu.T(e.tables.Users).As(aliasUsers),
			goqu.On(goqu.I(aliasUsers+"."+colID).Eq(goqu.I(aliasRecords+"."+colUserID))),
		).
		SelectAppend(goqu.I(aliasUsers+"."+colUsername), goqu.I(aliasUsers+"."+colEmail)).
		Order(goqu.I(aliasRecords + "." + colBorrowDate).Desc())

	return e.queryHistory(ctx, "list all borrows", selectStmt, true)
}

// findActiveLoan looks up the borrower's active record for a book inside the
// caller's transaction. Returns nil when there is none.
func (e Engine) findActiveLoan(ctx context.Context, tx adapters.DBRunner, userID int64, bookID int64) (*catalogue.BorrowRecord, error) {
	selectStmt := e.selectBorrowRecords().
		Where(
			goqu.C(colUserID).Eq(userID),
			goqu.C(colBookID).Eq(bookID),
			goqu.C(colStatus).Eq(string(catalogue.StatusBorrowed)),
		)

	records, err := e.queryBorrowRecords(ctx, tx, "find active loan", selectStmt)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, nil
	}

	return &records[0], nil
}

// findBorrowRecordForUpdate loads the record matching (id, borrower) with an
// exclusive row lock, inside the caller's transaction. The borrower match is
// the ownership check: a record belonging to someone else is reported as
// catalogue.ErrRecordNotFound, not leaked.
func (e Engine) findBorrowRecordForUpdate(ctx context.Context, tx adapters.DBRunner, recordID int64, userID int64) (catalogue.BorrowRecord, error) {
	selectStmt := e.selectBorrowRecords().
		Where(
			goqu.C(colID).Eq(recordID),
			goqu.C(colUserID).Eq(userID),
		).
		ForUpdate(exp.Wait)

	records, err := e.queryBorrowRecords(ctx, tx, "find borrow record for update", selectStmt)
	if err != nil {
		return catalogue.BorrowRecord{}, err
	}

	if len(records) == 0 {
		return catalogue.BorrowRecord{}, catalogue.ErrRecordNotFound
	}

	return records[0], nil
}

// insertBorrowRecord inserts the record inside the caller's transaction and
// returns it with the assigned ID.
func (e Engine) insertBorrowRecord(ctx context.Context, tx adapters.DBRunner, record catalogue.BorrowRecord) (catalogue.BorrowRecord, error) {
	var empty catalogue.BorrowRecord

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(e.tables.BorrowRecords).
		Rows(goqu.Record{
			colUserID:     record.UserID,
			colBookID:     record.BookID,
			colBorrowDate: record.BorrowedAt,
			colDueDate:    record.DueAt,
			colStatus:     string(record.Status),
		}).
		Returning(colID)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return empty, errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := tx.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, "insert borrow record", sqlQuery, time.Since(start))

	if queryErr != nil {
		// The partial unique index on (user_id, book_id) WHERE status =
		// 'borrowed' backstops the duplicate check under concurrency.
		if adapters.IsUniqueViolation(queryErr) {
			return empty, catalogue.ErrDuplicateActiveLoan
		}

		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)

		return empty, errors.Join(catalogue.ErrQueryFailed, queryErr)
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return empty, errors.Join(catalogue.ErrQueryFailed, errors.New("insert returned no row"))
	}

	if scanErr := rows.Scan(&record.ID); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return empty, errors.Join(catalogue.ErrScanRowFailed, scanErr)
	}

	return record, nil
}

// markReturned persists the terminal state of a record inside the caller's
// transaction. The status guard in the WHERE clause makes the update
// idempotence-safe even if a caller bypassed the locked read.
func (e Engine) markReturned(ctx context.Context, tx adapters.DBRunner, recordID int64, returnedAt time.Time) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(e.tables.BorrowRecords).
		Set(goqu.Record{
			colStatus:     string(catalogue.StatusReturned),
			colReturnDate: returnedAt,
		}).
		Where(
			goqu.C(colID).Eq(recordID),
			goqu.C(colStatus).Eq(string(catalogue.StatusBorrowed)),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, err := e.execOnRunner(ctx, tx, "mark borrow record returned", sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return catalogue.ErrAlreadyReturned
	}

	return nil
}

func (e Engine) selectBorrowRecords() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(e.tables.BorrowRecords).
		Select(colID, colUserID, colBookID, colBorrowDate, colDueDate, colReturnDate, colStatus)
}

func (e Engine) selectHistoryWithBooks() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(goqu.T(e.tables.BorrowRecords).As(aliasRecords)).
		Join(
			goqu.T(e.tables.Books).As(aliasBooks),
			goqu.On(goqu.I(aliasBooks+"."+colID).Eq(goqu.I(aliasRecords+"."+colBookID))),
		).
		Select(
			goqu.I(aliasRecords+"."+colID),
			goqu.I(aliasRecords+"."+colUserID),
			goqu.I(aliasRecords+"."+colBookID),
			goqu.I(aliasBooks+"."+colTitle),
			goqu.I(aliasBooks+"."+colAuthor),
			goqu.I(aliasRecords+"."+colBorrowDate),
			goqu.I(aliasRecords+"."+colDueDate),
			goqu.I(aliasRecords+"."+colReturnDate),
			goqu.I(aliasRecords+"."+colStatus),
		)
}

func (e Engine) queryBorrowRecords(
	ctx context.Context,
	runner adapters.DBRunner,
	action string,
	selectStmt *goqu.SelectDataset,
) ([]catalogue.BorrowRecord, error) {

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := runner.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, action, sqlQuery, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, errors.Join(catalogue.ErrQueryFailed, queryErr)
	}
	defer e.closeRows(rows)

	records := make([]catalogue.BorrowRecord, 0)

	for rows.Next() {
		var record catalogue.BorrowRecord
		var returnedAt sql.NullTime
		var status string

		scanErr := rows.Scan(
			&record.ID, &record.UserID, &record.BookID,
			&record.BorrowedAt, &record.DueAt, &returnedAt, &status,
		)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(catalogue.ErrScanRowFailed, scanErr)
		}

		if returnedAt.Valid {
			record.ReturnedAt = &returnedAt.Time
		}

		record.Status = catalogue.Status(status)

		records = append(records, record)
	}

	return records, nil
}

func (e Engine) queryHistory(
	ctx context.Context,
	action string,
	selectStmt *goqu.SelectDataset,
	withAccounts bool,
) ([]catalogue.BorrowHistoryEntry, error) {

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, action, sqlQuery, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, errors.Join(catalogue.ErrQueryFailed, queryErr)
	}
	defer e.closeRows(rows)

	entries := make([]catalogue.BorrowHistoryEntry, 0)

	for rows.Next() {
		var entry catalogue.BorrowHistoryEntry
		var returnedAt sql.NullTime
		var status string

		dest := []any{
			&entry.RecordID, &entry.UserID, &entry.BookID, &entry.Title, &entry.Author,
			&entry.BorrowedAt, &entry.DueAt, &returnedAt, &status,
		}
		if withAccounts {
			dest = append(dest, &entry.Username, &entry.Email)
		}

		if scanErr := rows.Scan(dest...); scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(catalogue.ErrScanRowFailed, scanErr)
		}

		if returnedAt.Valid {
			entry.ReturnedAt = &returnedAt.Time
		}

		entry.Status = catalogue.Status(status)

		entries = append(entries, entry)
	}

	return entries, nil
}
