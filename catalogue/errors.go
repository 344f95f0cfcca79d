package catalogue

import "errors"

// Business rule violations. These are detected from query results inside a
// lending transaction, never from driver errors, and always abort the
// transaction cleanly.
var (
	ErrBookNotFound        = errors.New("book does not exist")
	ErrBookUnavailable     = errors.New("no copy of the book is available")
	ErrDuplicateActiveLoan = errors.New("borrower already holds an active loan for this book")
	ErrRecordNotFound      = errors.New("borrow record does not exist for this borrower")
	ErrAlreadyReturned     = errors.New("borrow record is already returned")
	ErrInvalidTransition   = errors.New("illegal borrow record state transition")
)

// Validation failures for caller-supplied input.
var (
	ErrMissingTitleOrAuthor = errors.New("title and author are required")
	ErrNegativeCopyCount    = errors.New("copy count must not be negative")
	ErrMissingCredentials   = errors.New("username, email and password are required")
)

// Account failures.
var (
	ErrDuplicateUser      = errors.New("email or username already exists")
	ErrDuplicateISBN      = errors.New("a book with this isbn already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store failures. The engine joins these with the underlying driver error;
// transports must surface only the generic message and log the detail.
var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("empty table name supplied")
	ErrBeginTxFailed         = errors.New("starting transaction failed")
	ErrCommitFailed          = errors.New("committing transaction failed")
	ErrQueryFailed           = errors.New("database query execution failed")
	ErrExecFailed            = errors.New("database execution failed")
	ErrScanRowFailed         = errors.New("scanning database row failed")
	ErrBuildingQueryFailed   = errors.New("building query failed")
	ErrHashingPasswordFailed = errors.New("hashing password failed")
)
