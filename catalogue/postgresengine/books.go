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

// CreateBook inserts a new catalogue title. All copies of a new book start
// available. A duplicate ISBN fails with catalogue.ErrDuplicateISBN.
func (e Engine) CreateBook(ctx context.Context, input catalogue.NewBookInput) (catalogue.Book, error) {
	var empty catalogue.Book

	if err := input.Validate(); err != nil {
		return empty, err
	}

	book := catalogue.Book{
		Title:           input.Title,
		Author:          input.Author,
		ISBN:            input.ISBN,
		Category:        input.Category,
		YearPublished:   input.YearPublished,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(e.tables.Books).
		Rows(goqu.Record{
			colTitle:           book.Title,
			colAuthor:          book.Author,
			colISBN:            nullableString(book.ISBN),
			colCategory:        nullableString(book.Category),
			colYearPublished:   nullableInt(book.YearPublished),
			colTotalCopies:     book.TotalCopies,
			colAvailableCopies: book.AvailableCopies,
		}).
		Returning(colID, colCreatedAt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return empty, errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, "create book", sqlQuery, time.Since(start))

	if queryErr != nil {
		if adapters.IsUniqueViolation(queryErr) {
			return empty, catalogue.ErrDuplicateISBN
		}

		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)

		return empty, errors.Join(catalogue.ErrQueryFailed, queryErr)
	}
	defer e.closeRows(rows)

	if !rows.Next() {
		return empty, errors.Join(catalogue.ErrQueryFailed, errors.New("insert returned no row"))
	}

	if scanErr := rows.Scan(&book.ID, &book.CreatedAt); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return empty, errors.Join(catalogue.ErrScanRowFailed, scanErr)
	}

	e.logOperation(ctx, "book created", logAttrBookID, book.ID)

	return book, nil
}

// GetBook fetches a single book by ID.
func (e Engine) GetBook(ctx context.Context, bookID int64) (catalogue.Book, error) {
	selectStmt := e.selectBooks().Where(goqu.C(colID).Eq(bookID))

	books, err := e.queryBooks(ctx, "get book", selectStmt)
	if err != nil {
		return catalogue.Book{}, err
	}

	if len(books) == 0 {
		return catalogue.Book{}, catalogue.ErrBookNotFound
	}

	return books[0], nil
}

// ListBooks returns the whole catalogue, newest first.
func (e Engine) ListBooks(ctx context.Context) ([]catalogue.Book, error) {
	selectStmt := e.selectBooks().Order(goqu.I(colCreatedAt).Desc())

	return e.queryBooks(ctx, "list books", selectStmt)
}

// SearchBooks returns books whose title, author, category, or ISBN matches
// the term, case-insensitively, newest first. An empty term lists everything.
func (e Engine) SearchBooks(ctx context.Context, term string) ([]catalogue.Book, error) {
	pattern := "%" + term + "%"

	selectStmt := e.selectBooks().
		Where(goqu.Or(
			goqu.C(colTitle).ILike(pattern),
			goqu.C(colAuthor).ILike(pattern),
			goqu.C(colCategory).ILike(pattern),
			goqu.C(colISBN).ILike(pattern),
		)).
		Order(goqu.I(colCreatedAt).Desc())

	return e.queryBooks(ctx, "search books", selectStmt)
}

// UpdateBook replaces the mutable attributes of a book. Copy counters are
// caller-supplied here because catalogue management may correct them; the
// database constraint still rejects counters that violate the availability
// invariant.
func (e Engine) UpdateBook(ctx context.Context, book catalogue.Book) error {
	input := catalogue.NewBookInput{Title: book.Title, Author: book.Author, TotalCopies: book.TotalCopies}
	if err := input.Validate(); err != nil {
		return err
	}

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(e.tables.Books).
		Set(goqu.Record{
			colTitle:           book.Title,
			colAuthor:          book.Author,
			colISBN:            nullableString(book.ISBN),
			colCategory:        nullableString(book.Category),
			colYearPublished:   nullableInt(book.YearPublished),
			colTotalCopies:     book.TotalCopies,
			colAvailableCopies: book.AvailableCopies,
		}).
		Where(goqu.C(colID).Eq(book.ID))

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, err := e.execOnRunner(ctx, e.db, "update book", sqlQuery)
	if err != nil {
		if adapters.IsUniqueViolation(err) {
			return catalogue.ErrDuplicateISBN
		}

		return err
	}

	if rowsAffected == 0 {
		return catalogue.ErrBookNotFound
	}

	e.logOperation(ctx, "book updated", logAttrBookID, book.ID)

	return nil
}

// DeleteBook removes a book from the catalogue. Borrow records referencing it
// are kept; the ledger references books weakly by ID.
func (e Engine) DeleteBook(ctx context.Context, bookID int64) error {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(e.tables.Books).
		Where(goqu.C(colID).Eq(bookID))

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, err := e.execOnRunner(ctx, e.db, "delete book", sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return catalogue.ErrBookNotFound
	}

	e.logOperation(ctx, "book deleted", logAttrBookID, bookID)

	return nil
}

// getBookForUpdate loads a book row with an exclusive row lock, inside the
// caller's transaction. The lock blocks concurrent Borrow/Return on the same
// book until the transaction ends.
func (e Engine) getBookForUpdate(ctx context.Context, tx adapters.DBRunner, bookID int64) (catalogue.Book, error) {
	selectStmt := e.selectBooks().
		Where(goqu.C(colID).Eq(bookID)).
		ForUpdate(exp.Wait)

	books, err := e.queryBooksOnRunner(ctx, tx, "get book for update", selectStmt)
	if err != nil {
		return catalogue.Book{}, err
	}

	if len(books) == 0 {
		return catalogue.Book{}, catalogue.ErrBookNotFound
	}

	return books[0], nil
}

// incrementAvailable adjusts available_copies by delta inside the caller's
// transaction. The database check constraint guards the counter bounds.
func (e Engine) incrementAvailable(ctx context.Context, tx adapters.DBRunner, bookID int64, delta int) error {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(e.tables.Books).
		Set(goqu.Record{colAvailableCopies: goqu.L("? + ?", goqu.C(colAvailableCopies), delta)}).
		Where(goqu.C(colID).Eq(bookID))

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return errors.Join(catalogue.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, err := e.execOnRunner(ctx, tx, "increment available copies", sqlQuery)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return catalogue.ErrBookNotFound
	}

	return nil
}

func (e Engine) selectBooks() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(e.tables.Books).
		Select(colID, colTitle, colAuthor, colISBN, colCategory, colYearPublished,
			colTotalCopies, colAvailableCopies, colCreatedAt)
}

func (e Engine) queryBooks(ctx context.Context, action string, selectStmt *goqu.SelectDataset) ([]catalogue.Book, error) {
	return e.queryBooksOnRunner(ctx, e.db, action, selectStmt)
}

func (e Engine) queryBooksOnRunner(
	ctx context.Context,
	runner adapters.DBRunner,
	action string,
	selectStmt *goqu.SelectDataset,
) ([]catalogue.Book, error) {

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

	books := make([]catalogue.Book, 0)

	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(catalogue.ErrScanRowFailed, scanErr)
		}

		books = append(books, book)
	}

	return books, nil
}

// execOnRunner executes a statement on a pool or transaction and returns the
// affected row count.
func (e Engine) execOnRunner(ctx context.Context, runner adapters.DBRunner, action string, sqlQuery string) (int64, error) {
	start := time.Now()
	result, execErr := runner.Exec(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, action, sqlQuery, time.Since(start))

	if execErr != nil {
		e.logError(ctx, logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		return 0, errors.Join(catalogue.ErrExecFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, errors.Join(catalogue.ErrExecFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

func scanBook(rows adapters.DBRows) (catalogue.Book, error) {
	var book catalogue.Book
	var isbn, category sql.NullString
	var yearPublished sql.NullInt32

	scanErr := rows.Scan(
		&book.ID, &book.Title, &book.Author, &isbn, &category, &yearPublished,
		&book.TotalCopies, &book.AvailableCopies, &book.CreatedAt,
	)
	if scanErr != nil {
		return catalogue.Book{}, scanErr
	}

	if isbn.Valid {
		book.ISBN = &isbn.String
	}

	if category.Valid {
		book.Category = &category.String
	}

	if yearPublished.Valid {
		year := int(yearPublished.Int32)
		book.YearPublished = &year
	}

	return book, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}

	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}

	return *value
}
