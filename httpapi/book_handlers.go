package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

// BookHandler serves the catalogue endpoints. Reads are open; mutation is
// gated behind the librarian role by the router.
type BookHandler struct {
	books CatalogueService
}

// NewBookHandler creates a BookHandler.
func NewBookHandler(books CatalogueService) *BookHandler {
	return &BookHandler{books: books}
}

// List handles GET /api/books.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.ListBooks(r.Context())
	if err != nil {
		respondError(w, err, "Failed to retrieve books")
		return
	}

	respondJSON(w, http.StatusOK, books)
}

// Search handles GET /api/books/search?q=term.
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.SearchBooks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, err, "Search failed")
		return
	}

	respondJSON(w, http.StatusOK, books)
}

type bookCreatedResponse struct {
	Message string         `json:"message"`
	Book    catalogue.Book `json:"book"`
}

// Create handles POST /api/books (librarian).
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input catalogue.NewBookInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondMessage(w, http.StatusBadRequest, "Title and author are required")
		return
	}

	if input.TotalCopies == 0 {
		input.TotalCopies = 1
	}

	book, err := h.books.CreateBook(r.Context(), input)
	if err != nil {
		respondError(w, err, "Failed to add book")
		return
	}

	respondJSON(w, http.StatusCreated, bookCreatedResponse{
		Message: "Book added to catalogue successfully",
		Book:    book,
	})
}

// updateBookRequest carries the PUT body. The copy counters are pointers so
// an omitted field is distinguishable from an explicit zero.
type updateBookRequest struct {
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	ISBN            *string `json:"isbn"`
	Category        *string `json:"category"`
	YearPublished   *int    `json:"year_published"`
	TotalCopies     *int    `json:"total_copies"`
	AvailableCopies *int    `json:"available_copies"`
}

// Update handles PUT /api/books/{id} (librarian).
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request updateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondMessage(w, http.StatusBadRequest, "Title and author are required")
		return
	}

	totalCopies := 1
	if request.TotalCopies != nil {
		totalCopies = *request.TotalCopies
	}

	// An omitted available_copies resets to the full stock.
	availableCopies := totalCopies
	if request.AvailableCopies != nil {
		availableCopies = *request.AvailableCopies
	}

	book := catalogue.Book{
		ID:              bookID,
		Title:           request.Title,
		Author:          request.Author,
		ISBN:            request.ISBN,
		Category:        request.Category,
		YearPublished:   request.YearPublished,
		TotalCopies:     totalCopies,
		AvailableCopies: availableCopies,
	}

	if err := h.books.UpdateBook(r.Context(), book); err != nil {
		respondError(w, err, "Book update failed")
		return
	}

	respondMessage(w, http.StatusOK, "Book updated successfully")
}

// Delete handles DELETE /api/books/{id} (librarian).
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.books.DeleteBook(r.Context(), bookID); err != nil {
		respondError(w, err, "Book deletion failed")
		return
	}

	respondMessage(w, http.StatusOK, "Book deleted successfully")
}

// pathID parses a positive integer path variable, responding 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondMessage(w, http.StatusBadRequest, "Invalid identifier")
		return 0, false
	}

	return id, true
}
