package catalogue

import "time"

// LoanPeriod is the fixed loan duration: the due date of a new borrow record
// is its borrow timestamp plus this period.
const LoanPeriod = 14 * 24 * time.Hour

// Status is the lifecycle state of a BorrowRecord. The only legal transition
// is StatusBorrowed -> StatusReturned; StatusReturned is terminal.
type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
)

// IsValid reports whether s is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusBorrowed, StatusReturned:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine allows moving from s to target.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusBorrowed && target == StatusReturned
}

// BorrowRecord represents one loan instance of a book by a user.
// Records are created in StatusBorrowed and transitioned to StatusReturned
// exactly once; they are never deleted.
type BorrowRecord struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	BorrowedAt time.Time  `json:"borrow_date"`
	DueAt      time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"return_date"`
	Status     Status     `json:"status"`
}

// NewBorrowRecord builds a fresh record in StatusBorrowed with the due date
// derived from the borrow timestamp. The ID is assigned on insert.
func NewBorrowRecord(userID int64, bookID int64, borrowedAt time.Time) BorrowRecord {
	return BorrowRecord{
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
		DueAt:      borrowedAt.Add(LoanPeriod),
		Status:     StatusBorrowed,
	}
}

// IsActive reports whether the record represents a loan that has not been returned.
func (r BorrowRecord) IsActive() bool {
	return r.Status == StatusBorrowed
}

// MarkReturned transitions the record to StatusReturned and stamps the return
// time. It fails with ErrAlreadyReturned if the record is already in the
// terminal state, and with ErrInvalidTransition for any unknown state.
func (r *BorrowRecord) MarkReturned(returnedAt time.Time) error {
	switch r.Status {
	case StatusReturned:
		return ErrAlreadyReturned

	case StatusBorrowed:
		r.Status = StatusReturned
		r.ReturnedAt = &returnedAt

		return nil

	default:
		return ErrInvalidTransition
	}
}

// BorrowHistoryEntry is a borrow record joined with the book it references,
// as served by the history endpoints. Username and Email are only populated
// for the privileged all-borrowers listing.
type BorrowHistoryEntry struct {
	RecordID   int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Username   string     `json:"username,omitempty"`
	Email      string     `json:"email,omitempty"`
	BookID     int64      `json:"book_id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	BorrowedAt time.Time  `json:"borrow_date"`
	DueAt      time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"return_date"`
	Status     Status     `json:"status"`
}
