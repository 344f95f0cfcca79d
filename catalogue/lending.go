package catalogue

// DecideBorrow implements the business rules for borrowing, as a pure
// function over the rows the transaction manager has already locked and read.
//
// Business Rules:
//
//	GIVEN: the Book row (locked) and the borrower's active loan for it, if any
//	WHEN: a Borrow is requested
//	THEN: nil is returned and the caller may insert the record and decrement the counter
//	ERROR: ErrDuplicateActiveLoan if the borrower already holds an active loan of this book
//	ERROR: ErrBookUnavailable if no copy is available
//
// The duplicate-loan check deliberately runs before the availability check:
// a borrower retrying their own borrow gets told about their existing loan
// rather than a misleading "not available". The order is fixed; both
// violations abort the transaction either way.
func DecideBorrow(book Book, activeLoan *BorrowRecord) error {
	if activeLoan != nil && activeLoan.IsActive() {
		return ErrDuplicateActiveLoan
	}

	if !book.HasAvailableCopy() {
		return ErrBookUnavailable
	}

	return nil
}

// DecideReturn implements the business rules for returning. The ownership
// check is not here: the transaction manager looks the record up by
// (id, borrower) and a mismatch surfaces as ErrRecordNotFound before this
// function runs.
func DecideReturn(record BorrowRecord) error {
	if record.Status != StatusBorrowed {
		return ErrAlreadyReturned
	}

	return nil
}
