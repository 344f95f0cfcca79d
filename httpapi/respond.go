package httpapi

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

var json = jsoniter.ConfigFastest

const (
	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
)

type messageBody struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, messageBody{Message: message})
}

// respondError maps domain errors onto terse HTTP failure bodies. Anything
// outside the taxonomy is a store failure: the caller gets the generic
// fallback message, the detail stays in the server log.
func respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, catalogue.ErrBookNotFound):
		respondMessage(w, http.StatusNotFound, "Book not found.")

	case errors.Is(err, catalogue.ErrRecordNotFound):
		respondMessage(w, http.StatusNotFound, "Borrow record not found for this user.")

	case errors.Is(err, catalogue.ErrBookUnavailable):
		respondMessage(w, http.StatusConflict, "Book is currently not available.")

	case errors.Is(err, catalogue.ErrDuplicateActiveLoan):
		respondMessage(w, http.StatusConflict, "You already borrowed this book. Return it first.")

	case errors.Is(err, catalogue.ErrAlreadyReturned), errors.Is(err, catalogue.ErrInvalidTransition):
		respondMessage(w, http.StatusConflict, "This book is already returned.")

	case errors.Is(err, catalogue.ErrDuplicateUser):
		respondMessage(w, http.StatusConflict, "Email or username already exists")

	case errors.Is(err, catalogue.ErrDuplicateISBN):
		respondMessage(w, http.StatusConflict, "A book with this ISBN already exists")

	case errors.Is(err, catalogue.ErrInvalidCredentials):
		respondMessage(w, http.StatusUnauthorized, "Invalid credentials")

	case errors.Is(err, catalogue.ErrMissingTitleOrAuthor):
		respondMessage(w, http.StatusBadRequest, "Title and author are required")

	case errors.Is(err, catalogue.ErrNegativeCopyCount):
		respondMessage(w, http.StatusBadRequest, "Copy counts must not be negative")

	case errors.Is(err, catalogue.ErrMissingCredentials):
		respondMessage(w, http.StatusBadRequest, "Username, email and password are required")

	default:
		respondMessage(w, http.StatusInternalServerError, fallback)
	}
}
