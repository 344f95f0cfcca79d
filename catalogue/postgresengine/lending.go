package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/campuslib/library-catalogue-go/catalogue"
	"github.com/campuslib/library-catalogue-go/catalogue/postgresengine/internal/adapters"
)

const (
	operationBorrow = "borrow"
	operationReturn = "return"
)

// Borrow lends one copy of a book to a borrower.
//
// The whole operation runs in a single transaction with the book row locked
// for update, so two concurrent Borrows on the same book serialize: one
// commits before the other's locked read returns. The check-then-act sequence
// (read the counter, decide, write) is therefore race-free; without the lock,
// two requests for the last copy could both pass the availability check and
// drive the counter negative.
//
// Failures: catalogue.ErrBookNotFound, catalogue.ErrDuplicateActiveLoan,
// catalogue.ErrBookUnavailable, or a joined store failure. Every failure
// path rolls the transaction back; no partial state is observable.
func (e Engine) Borrow(ctx context.Context, borrowerID int64, bookID int64) (catalogue.BorrowRecord, error) {
	var empty catalogue.BorrowRecord

	start := time.Now()

	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		e.observeLending(operationBorrow, outcomeError, time.Since(start))

		return empty, errors.Join(catalogue.ErrBeginTxFailed, beginErr)
	}
	defer e.rollback(ctx, tx)

	book, getErr := e.getBookForUpdate(ctx, tx, bookID)
	if getErr != nil {
		e.observeLending(operationBorrow, outcomeForError(getErr), time.Since(start))
		return empty, getErr
	}

	activeLoan, findErr := e.findActiveLoan(ctx, tx, borrowerID, bookID)
	if findErr != nil {
		e.observeLending(operationBorrow, outcomeError, time.Since(start))
		return empty, findErr
	}

	if decideErr := catalogue.DecideBorrow(book, activeLoan); decideErr != nil {
		e.observeLending(operationBorrow, outcomeConflict, time.Since(start))
		return empty, decideErr
	}

	record, insertErr := e.insertBorrowRecord(ctx, tx, catalogue.NewBorrowRecord(borrowerID, bookID, e.now()))
	if insertErr != nil {
		e.observeLending(operationBorrow, outcomeForError(insertErr), time.Since(start))
		return empty, insertErr
	}

	if decErr := e.incrementAvailable(ctx, tx, bookID, -1); decErr != nil {
		e.observeLending(operationBorrow, outcomeError, time.Since(start))
		return empty, decErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		e.observeLending(operationBorrow, outcomeError, time.Since(start))

		return empty, errors.Join(catalogue.ErrCommitFailed, commitErr)
	}

	duration := time.Since(start)
	e.logOperation(ctx, "book borrowed",
		logAttrRecordID, record.ID,
		logAttrBookID, bookID,
		logAttrUserID, borrowerID,
		logAttrDurationMS, durationToMilliseconds(duration))
	e.observeLending(operationBorrow, outcomeSuccess, duration)

	return record, nil
}

// Return ends a loan: the record transitions to its terminal returned state
// and the book's available-copy counter is incremented again.
//
// The record row is locked for update, so two concurrent Returns of the same
// record serialize; the second observes catalogue.ErrAlreadyReturned after
// the first commits. The record must belong to the requesting borrower; a
// mismatch surfaces as catalogue.ErrRecordNotFound. Every failure path rolls
// the transaction back.
func (e Engine) Return(ctx context.Context, recordID int64, borrowerID int64) error {
	start := time.Now()

	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		e.observeLending(operationReturn, outcomeError, time.Since(start))

		return errors.Join(catalogue.ErrBeginTxFailed, beginErr)
	}
	defer e.rollback(ctx, tx)

	record, findErr := e.findBorrowRecordForUpdate(ctx, tx, recordID, borrowerID)
	if findErr != nil {
		e.observeLending(operationReturn, outcomeForError(findErr), time.Since(start))
		return findErr
	}

	if decideErr := catalogue.DecideReturn(record); decideErr != nil {
		e.observeLending(operationReturn, outcomeConflict, time.Since(start))
		return decideErr
	}

	returnedAt := e.now()
	if transitionErr := record.MarkReturned(returnedAt); transitionErr != nil {
		e.observeLending(operationReturn, outcomeConflict, time.Since(start))
		return transitionErr
	}

	if markErr := e.markReturned(ctx, tx, recordID, returnedAt); markErr != nil {
		e.observeLending(operationReturn, outcomeForError(markErr), time.Since(start))
		return markErr
	}

	// The book may have been deleted from the catalogue while the loan was
	// active; the ledger references books weakly, so the return still
	// completes and only the counter restore becomes a no-op.
	if incErr := e.incrementAvailable(ctx, tx, record.BookID, 1); incErr != nil && !errors.Is(incErr, catalogue.ErrBookNotFound) {
		e.observeLending(operationReturn, outcomeError, time.Since(start))
		return incErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		e.observeLending(operationReturn, outcomeError, time.Since(start))

		return errors.Join(catalogue.ErrCommitFailed, commitErr)
	}

	duration := time.Since(start)
	e.logOperation(ctx, "book returned",
		logAttrRecordID, recordID,
		logAttrBookID, record.BookID,
		logAttrUserID, borrowerID,
		logAttrDurationMS, durationToMilliseconds(duration))
	e.observeLending(operationReturn, outcomeSuccess, duration)

	return nil
}

// rollback aborts the transaction; it is a no-op after a successful commit.
func (e Engine) rollback(ctx context.Context, tx adapters.DBTx) {
	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
		e.logWarn(logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, catalogue.ErrBookNotFound), errors.Is(err, catalogue.ErrRecordNotFound):
		return outcomeNotFound
	case errors.Is(err, catalogue.ErrDuplicateActiveLoan), errors.Is(err, catalogue.ErrAlreadyReturned):
		return outcomeConflict
	default:
		return outcomeError
	}
}
