package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

// BorrowHandler serves the lending endpoints on top of the transaction
// manager and the borrow ledger.
type BorrowHandler struct {
	lending LendingService
	history HistoryService
}

// NewBorrowHandler creates a BorrowHandler.
func NewBorrowHandler(lending LendingService, history HistoryService) *BorrowHandler {
	return &BorrowHandler{lending: lending, history: history}
}

type borrowRequest struct {
	UserID int64 `json:"user_id"`
	BookID int64 `json:"book_id"`
}

type borrowSummary struct {
	ID         int64            `json:"id"`
	BorrowedAt time.Time        `json:"borrow_date"`
	DueAt      time.Time        `json:"due_date"`
	Status     catalogue.Status `json:"status"`
}

type borrowResponse struct {
	Message string        `json:"message"`
	Borrow  borrowSummary `json:"borrow"`
}

// Borrow handles POST /api/borrow (student).
func (h *BorrowHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var request borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondMessage(w, http.StatusBadRequest, "user_id and book_id are required.")
		return
	}

	if request.UserID <= 0 || request.BookID <= 0 {
		respondMessage(w, http.StatusBadRequest, "user_id and book_id are required.")
		return
	}

	// The transaction must run to commit-or-rollback even if the client
	// disconnects mid-flight, so it gets a context that survives request
	// cancellation.
	record, err := h.lending.Borrow(context.WithoutCancel(r.Context()), request.UserID, request.BookID)
	if err != nil {
		respondError(w, err, "Error borrowing book.")
		return
	}

	respondJSON(w, http.StatusCreated, borrowResponse{
		Message: "Book borrowed successfully.",
		Borrow: borrowSummary{
			ID:         record.ID,
			BorrowedAt: record.BorrowedAt,
			DueAt:      record.DueAt,
			Status:     record.Status,
		},
	})
}

type returnRequest struct {
	BorrowID int64 `json:"borrow_id"`
	UserID   int64 `json:"user_id"`
}

// Return handles POST /api/return (student).
func (h *BorrowHandler) Return(w http.ResponseWriter, r *http.Request) {
	var request returnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondMessage(w, http.StatusBadRequest, "borrow_id and user_id are required.")
		return
	}

	if request.BorrowID <= 0 || request.UserID <= 0 {
		respondMessage(w, http.StatusBadRequest, "borrow_id and user_id are required.")
		return
	}

	if err := h.lending.Return(context.WithoutCancel(r.Context()), request.BorrowID, request.UserID); err != nil {
		respondError(w, err, "Error returning book.")
		return
	}

	respondMessage(w, http.StatusOK, "Book returned successfully.")
}

// MyHistory handles GET /api/borrow/my/{userId} (student).
func (h *BorrowHandler) MyHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	entries, err := h.history.ListBorrowsByUser(r.Context(), userID)
	if err != nil {
		respondError(w, err, "Error loading your borrow history.")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// AllHistory handles GET /api/borrow (librarian).
func (h *BorrowHandler) AllHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.ListAllBorrows(r.Context())
	if err != nil {
		respondError(w, err, "Error loading borrow records.")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}
