package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

const (
	deniedStudentOnly   = "Only students can borrow/return books."
	deniedLibrarianOnly = "Access denied. Librarian only."
)

// Services bundles the dependencies the router wires into handlers.
type Services struct {
	Lending   LendingService
	History   HistoryService
	Catalogue CatalogueService
	Users     UserService
	Logger    catalogue.ContextualLogger
}

// NewRouter builds the full API surface.
//
// Reads on the catalogue are open. Catalogue mutation requires the librarian
// role, borrowing and returning require the student role, and the global
// borrow ledger is librarian only.
func NewRouter(services Services) http.Handler {
	authHandler := NewAuthHandler(services.Users)
	bookHandler := NewBookHandler(services.Catalogue)
	borrowHandler := NewBorrowHandler(services.Lending, services.History)

	studentOnly := RequireRole(catalogue.RoleStudent, deniedStudentOnly)
	librarianOnly := RequireRole(catalogue.RoleLibrarian, deniedLibrarianOnly)

	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondMessage(w, http.StatusOK, "ok")
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	api.HandleFunc("/books", bookHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/books/search", bookHandler.Search).Methods(http.MethodGet)
	api.Handle("/books", librarianOnly(http.HandlerFunc(bookHandler.Create))).Methods(http.MethodPost)
	api.Handle("/books/{id}", librarianOnly(http.HandlerFunc(bookHandler.Update))).Methods(http.MethodPut)
	api.Handle("/books/{id}", librarianOnly(http.HandlerFunc(bookHandler.Delete))).Methods(http.MethodDelete)

	api.Handle("/borrow", studentOnly(http.HandlerFunc(borrowHandler.Borrow))).Methods(http.MethodPost)
	api.Handle("/return", studentOnly(http.HandlerFunc(borrowHandler.Return))).Methods(http.MethodPost)
	api.Handle("/borrow/my/{userId}", studentOnly(http.HandlerFunc(borrowHandler.MyHistory))).Methods(http.MethodGet)
	api.Handle("/borrow", librarianOnly(http.HandlerFunc(borrowHandler.AllHistory))).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = CORSMiddleware(handler)
	handler = LoggingMiddleware(services.Logger)(handler)

	return handler
}
