package httpapi

import (
	"context"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

// LendingService defines the borrow/return transaction manager operations the
// handlers need.
type LendingService interface {
	Borrow(ctx context.Context, borrowerID int64, bookID int64) (catalogue.BorrowRecord, error)
	Return(ctx context.Context, recordID int64, borrowerID int64) error
}

// HistoryService defines the borrow ledger read operations.
type HistoryService interface {
	ListBorrowsByUser(ctx context.Context, userID int64) ([]catalogue.BorrowHistoryEntry, error)
	ListAllBorrows(ctx context.Context) ([]catalogue.BorrowHistoryEntry, error)
}

// CatalogueService defines the book catalogue management operations.
type CatalogueService interface {
	CreateBook(ctx context.Context, input catalogue.NewBookInput) (catalogue.Book, error)
	ListBooks(ctx context.Context) ([]catalogue.Book, error)
	SearchBooks(ctx context.Context, term string) ([]catalogue.Book, error)
	UpdateBook(ctx context.Context, book catalogue.Book) error
	DeleteBook(ctx context.Context, bookID int64) error
}

// UserService defines the account operations.
type UserService interface {
	RegisterUser(ctx context.Context, registration catalogue.Registration) (catalogue.User, error)
	Login(ctx context.Context, emailOrUsername string, password string) (catalogue.User, error)
}
