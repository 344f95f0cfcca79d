package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"

	"github.com/campuslib/library-catalogue-go/catalogue"
	"github.com/campuslib/library-catalogue-go/httpapi"
)

var json = jsoniter.ConfigFastest

// Service stubs with overridable function fields.

type lendingStub struct {
	borrowFunc func(ctx context.Context, borrowerID int64, bookID int64) (catalogue.BorrowRecord, error)
	returnFunc func(ctx context.Context, recordID int64, borrowerID int64) error
}

func (s *lendingStub) Borrow(ctx context.Context, borrowerID int64, bookID int64) (catalogue.BorrowRecord, error) {
	return s.borrowFunc(ctx, borrowerID, bookID)
}

func (s *lendingStub) Return(ctx context.Context, recordID int64, borrowerID int64) error {
	return s.returnFunc(ctx, recordID, borrowerID)
}

type historyStub struct {
	byUserFunc func(ctx context.Context, userID int64) ([]catalogue.BorrowHistoryEntry, error)
	allFunc    func(ctx context.Context) ([]catalogue.BorrowHistoryEntry, error)
}

func (s *historyStub) ListBorrowsByUser(ctx context.Context, userID int64) ([]catalogue.BorrowHistoryEntry, error) {
	return s.byUserFunc(ctx, userID)
}

func (s *historyStub) ListAllBorrows(ctx context.Context) ([]catalogue.BorrowHistoryEntry, error) {
	return s.allFunc(ctx)
}

type catalogueStub struct {
	createFunc func(ctx context.Context, input catalogue.NewBookInput) (catalogue.Book, error)
	listFunc   func(ctx context.Context) ([]catalogue.Book, error)
	searchFunc func(ctx context.Context, term string) ([]catalogue.Book, error)
	updateFunc func(ctx context.Context, book catalogue.Book) error
	deleteFunc func(ctx context.Context, bookID int64) error
}

func (s *catalogueStub) CreateBook(ctx context.Context, input catalogue.NewBookInput) (catalogue.Book, error) {
	return s.createFunc(ctx, input)
}

func (s *catalogueStub) ListBooks(ctx context.Context) ([]catalogue.Book, error) {
	return s.listFunc(ctx)
}

func (s *catalogueStub) SearchBooks(ctx context.Context, term string) ([]catalogue.Book, error) {
	return s.searchFunc(ctx, term)
}

func (s *catalogueStub) UpdateBook(ctx context.Context, book catalogue.Book) error {
	return s.updateFunc(ctx, book)
}

func (s *catalogueStub) DeleteBook(ctx context.Context, bookID int64) error {
	return s.deleteFunc(ctx, bookID)
}

type userStub struct {
	registerFunc func(ctx context.Context, registration catalogue.Registration) (catalogue.User, error)
	loginFunc    func(ctx context.Context, emailOrUsername string, password string) (catalogue.User, error)
}

func (s *userStub) RegisterUser(ctx context.Context, registration catalogue.Registration) (catalogue.User, error) {
	return s.registerFunc(ctx, registration)
}

func (s *userStub) Login(ctx context.Context, emailOrUsername string, password string) (catalogue.User, error) {
	return s.loginFunc(ctx, emailOrUsername, password)
}

func Test_Borrow_Success_ReturnsCreatedWithRecord(t *testing.T) {
	// arrange
	borrowedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	lending := &lendingStub{
		borrowFunc: func(_ context.Context, borrowerID int64, bookID int64) (catalogue.BorrowRecord, error) {
			assert.Equal(t, int64(42), borrowerID)
			assert.Equal(t, int64(7), bookID)

			record := catalogue.NewBorrowRecord(borrowerID, bookID, borrowedAt)
			record.ID = 99

			return record, nil
		},
	}

	router := givenRouter(t, withLending(lending))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/borrow",
		`{"user_id": 42, "book_id": 7}`, "student")

	// assert
	assert.Equal(t, http.StatusCreated, response.Code)
	body := decodeBody(t, response)
	assert.Equal(t, "Book borrowed successfully.", body["message"])

	borrow, ok := body["borrow"].(map[string]any)
	assert.True(t, ok, "response should carry the borrow record")
	assert.Equal(t, float64(99), borrow["id"])
	assert.Equal(t, "borrowed", borrow["status"])
}

func Test_Borrow_Fails_WithoutStudentRole(t *testing.T) {
	// arrange
	router := givenRouter(t)

	testCases := []struct {
		name string
		role string
	}{
		{name: "no role header", role: ""},
		{name: "librarian role", role: "librarian"},
		{name: "unknown role", role: "admin"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			response := doRequest(t, router, http.MethodPost, "/api/borrow",
				`{"user_id": 42, "book_id": 7}`, tc.role)

			// assert
			assert.Equal(t, http.StatusForbidden, response.Code)
			assert.Equal(t, "Only students can borrow/return books.", decodeBody(t, response)["message"])
		})
	}
}

func Test_Borrow_Fails_WhenIdentifiersMissing(t *testing.T) {
	// arrange
	router := givenRouter(t)

	testCases := []struct {
		name string
		body string
	}{
		{name: "empty body", body: `{}`},
		{name: "missing book", body: `{"user_id": 42}`},
		{name: "missing user", body: `{"book_id": 7}`},
		{name: "malformed json", body: `{"user_id": `},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			response := doRequest(t, router, http.MethodPost, "/api/borrow", tc.body, "student")

			// assert
			assert.Equal(t, http.StatusBadRequest, response.Code)
			assert.Equal(t, "user_id and book_id are required.", decodeBody(t, response)["message"])
		})
	}
}

func Test_Borrow_MapsDomainErrorsToStatusCodes(t *testing.T) {
	testCases := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "book not found",
			err:             catalogue.ErrBookNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Book not found.",
		},
		{
			name:            "no copy available",
			err:             catalogue.ErrBookUnavailable,
			expectedStatus:  http.StatusConflict,
			expectedMessage: "Book is currently not available.",
		},
		{
			name:            "duplicate active loan",
			err:             catalogue.ErrDuplicateActiveLoan,
			expectedStatus:  http.StatusConflict,
			expectedMessage: "You already borrowed this book. Return it first.",
		},
		{
			name:            "store failure stays generic",
			err:             catalogue.ErrQueryFailed,
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Error borrowing book.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			lending := &lendingStub{
				borrowFunc: func(context.Context, int64, int64) (catalogue.BorrowRecord, error) {
					return catalogue.BorrowRecord{}, tc.err
				},
			}

			router := givenRouter(t, withLending(lending))

			// act
			response := doRequest(t, router, http.MethodPost, "/api/borrow",
				`{"user_id": 42, "book_id": 7}`, "student")

			// assert
			assert.Equal(t, tc.expectedStatus, response.Code)
			assert.Equal(t, tc.expectedMessage, decodeBody(t, response)["message"])
		})
	}
}

func Test_Return_Success(t *testing.T) {
	// arrange
	lending := &lendingStub{
		returnFunc: func(_ context.Context, recordID int64, borrowerID int64) error {
			assert.Equal(t, int64(99), recordID)
			assert.Equal(t, int64(42), borrowerID)

			return nil
		},
	}

	router := givenRouter(t, withLending(lending))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/return",
		`{"borrow_id": 99, "user_id": 42}`, "student")

	// assert
	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "Book returned successfully.", decodeBody(t, response)["message"])
}

func Test_Return_MapsAlreadyReturnedToConflict(t *testing.T) {
	// arrange
	lending := &lendingStub{
		returnFunc: func(context.Context, int64, int64) error {
			return catalogue.ErrAlreadyReturned
		},
	}

	router := givenRouter(t, withLending(lending))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/return",
		`{"borrow_id": 99, "user_id": 42}`, "student")

	// assert
	assert.Equal(t, http.StatusConflict, response.Code)
	assert.Equal(t, "This book is already returned.", decodeBody(t, response)["message"])
}

func Test_Return_MapsOwnershipMismatchToNotFound(t *testing.T) {
	// arrange
	lending := &lendingStub{
		returnFunc: func(context.Context, int64, int64) error {
			return catalogue.ErrRecordNotFound
		},
	}

	router := givenRouter(t, withLending(lending))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/return",
		`{"borrow_id": 99, "user_id": 42}`, "student")

	// assert
	assert.Equal(t, http.StatusNotFound, response.Code)
	assert.Equal(t, "Borrow record not found for this user.", decodeBody(t, response)["message"])
}

func Test_MyHistory_ReturnsEntriesForStudent(t *testing.T) {
	// arrange
	history := &historyStub{
		byUserFunc: func(_ context.Context, userID int64) ([]catalogue.BorrowHistoryEntry, error) {
			assert.Equal(t, int64(42), userID)

			return []catalogue.BorrowHistoryEntry{{RecordID: 99, UserID: userID, BookID: 7, Title: "Dune"}}, nil
		},
	}

	router := givenRouter(t, withHistory(history))

	// act
	response := doRequest(t, router, http.MethodGet, "/api/borrow/my/42", "", "student")

	// assert
	assert.Equal(t, http.StatusOK, response.Code)

	var entries []map[string]any
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)
	assert.Equal(t, "Dune", entries[0]["title"])
}

func Test_AllHistory_RequiresLibrarianRole(t *testing.T) {
	// arrange
	history := &historyStub{
		allFunc: func(context.Context) ([]catalogue.BorrowHistoryEntry, error) {
			return []catalogue.BorrowHistoryEntry{}, nil
		},
	}

	router := givenRouter(t, withHistory(history))

	// act + assert: librarian passes, student is denied
	allowed := doRequest(t, router, http.MethodGet, "/api/borrow", "", "librarian")
	assert.Equal(t, http.StatusOK, allowed.Code)

	denied := doRequest(t, router, http.MethodGet, "/api/borrow", "", "student")
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.Equal(t, "Access denied. Librarian only.", decodeBody(t, denied)["message"])
}

func Test_CreateBook_RequiresLibrarianRole(t *testing.T) {
	// arrange
	books := &catalogueStub{
		createFunc: func(_ context.Context, input catalogue.NewBookInput) (catalogue.Book, error) {
			return catalogue.Book{ID: 7, Title: input.Title, Author: input.Author, TotalCopies: input.TotalCopies}, nil
		},
	}

	router := givenRouter(t, withCatalogue(books))

	// act + assert
	created := doRequest(t, router, http.MethodPost, "/api/books",
		`{"title": "Dune", "author": "Frank Herbert", "total_copies": 2}`, "librarian")
	assert.Equal(t, http.StatusCreated, created.Code)
	assert.Equal(t, "Book added to catalogue successfully", decodeBody(t, created)["message"])

	denied := doRequest(t, router, http.MethodPost, "/api/books",
		`{"title": "Dune", "author": "Frank Herbert"}`, "student")
	assert.Equal(t, http.StatusForbidden, denied.Code)
}

func Test_CreateBook_DefaultsTotalCopiesToOne(t *testing.T) {
	// arrange
	books := &catalogueStub{
		createFunc: func(_ context.Context, input catalogue.NewBookInput) (catalogue.Book, error) {
			assert.Equal(t, 1, input.TotalCopies)

			return catalogue.Book{ID: 7, Title: input.Title, Author: input.Author, TotalCopies: 1, AvailableCopies: 1}, nil
		},
	}

	router := givenRouter(t, withCatalogue(books))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/books",
		`{"title": "Dune", "author": "Frank Herbert"}`, "librarian")

	// assert
	assert.Equal(t, http.StatusCreated, response.Code)
}

func Test_ListBooks_IsOpenWithoutRole(t *testing.T) {
	// arrange
	books := &catalogueStub{
		listFunc: func(context.Context) ([]catalogue.Book, error) {
			return []catalogue.Book{{ID: 7, Title: "Dune", Author: "Frank Herbert"}}, nil
		},
	}

	router := givenRouter(t, withCatalogue(books))

	// act
	response := doRequest(t, router, http.MethodGet, "/api/books", "", "")

	// assert
	assert.Equal(t, http.StatusOK, response.Code)

	var listed []map[string]any
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func Test_SearchBooks_PassesQueryTerm(t *testing.T) {
	// arrange
	books := &catalogueStub{
		searchFunc: func(_ context.Context, term string) ([]catalogue.Book, error) {
			assert.Equal(t, "dune", term)

			return []catalogue.Book{}, nil
		},
	}

	router := givenRouter(t, withCatalogue(books))

	// act
	response := doRequest(t, router, http.MethodGet, "/api/books/search?q=dune", "", "")

	// assert
	assert.Equal(t, http.StatusOK, response.Code)
}

func Test_UpdateBook_DefaultsCopyCounters_WhenOmitted(t *testing.T) {
	testCases := []struct {
		name              string
		body              string
		expectedTotal     int
		expectedAvailable int
	}{
		{
			name:              "both omitted",
			body:              `{"title": "Dune", "author": "Frank Herbert"}`,
			expectedTotal:     1,
			expectedAvailable: 1,
		},
		{
			name:              "available omitted resets to full stock",
			body:              `{"title": "Dune", "author": "Frank Herbert", "total_copies": 3}`,
			expectedTotal:     3,
			expectedAvailable: 3,
		},
		{
			name:              "explicit zero available is preserved",
			body:              `{"title": "Dune", "author": "Frank Herbert", "total_copies": 3, "available_copies": 0}`,
			expectedTotal:     3,
			expectedAvailable: 0,
		},
		{
			name:              "both explicit",
			body:              `{"title": "Dune", "author": "Frank Herbert", "total_copies": 5, "available_copies": 2}`,
			expectedTotal:     5,
			expectedAvailable: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			books := &catalogueStub{
				updateFunc: func(_ context.Context, book catalogue.Book) error {
					assert.Equal(t, int64(7), book.ID)
					assert.Equal(t, tc.expectedTotal, book.TotalCopies)
					assert.Equal(t, tc.expectedAvailable, book.AvailableCopies)

					return nil
				},
			}

			router := givenRouter(t, withCatalogue(books))

			// act
			response := doRequest(t, router, http.MethodPut, "/api/books/7", tc.body, "librarian")

			// assert
			assert.Equal(t, http.StatusOK, response.Code)
			assert.Equal(t, "Book updated successfully", decodeBody(t, response)["message"])
		})
	}
}

func Test_UpdateBook_Fails_WhenIdentifierIsNotNumeric(t *testing.T) {
	// arrange
	router := givenRouter(t)

	// act
	response := doRequest(t, router, http.MethodPut, "/api/books/abc",
		`{"title": "Dune", "author": "Frank Herbert"}`, "librarian")

	// assert
	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.Equal(t, "Invalid identifier", decodeBody(t, response)["message"])
}

func Test_DeleteBook_MapsMissingBookToNotFound(t *testing.T) {
	// arrange
	books := &catalogueStub{
		deleteFunc: func(context.Context, int64) error {
			return catalogue.ErrBookNotFound
		},
	}

	router := givenRouter(t, withCatalogue(books))

	// act
	response := doRequest(t, router, http.MethodDelete, "/api/books/7", "", "librarian")

	// assert
	assert.Equal(t, http.StatusNotFound, response.Code)
	assert.Equal(t, "Book not found.", decodeBody(t, response)["message"])
}

func Test_Register_Success(t *testing.T) {
	// arrange
	users := &userStub{
		registerFunc: func(_ context.Context, registration catalogue.Registration) (catalogue.User, error) {
			assert.Equal(t, "ada", registration.Username)

			return catalogue.User{ID: 42, Username: registration.Username}, nil
		},
	}

	router := givenRouter(t, withUsers(users))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/auth/register",
		`{"username": "ada", "email": "ada@example.com", "password": "pw"}`, "")

	// assert
	assert.Equal(t, http.StatusCreated, response.Code)
	assert.Equal(t, "User account created successfully", decodeBody(t, response)["message"])
}

func Test_Register_MapsDuplicateToConflict(t *testing.T) {
	// arrange
	users := &userStub{
		registerFunc: func(context.Context, catalogue.Registration) (catalogue.User, error) {
			return catalogue.User{}, catalogue.ErrDuplicateUser
		},
	}

	router := givenRouter(t, withUsers(users))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/auth/register",
		`{"username": "ada", "email": "ada@example.com", "password": "pw"}`, "")

	// assert
	assert.Equal(t, http.StatusConflict, response.Code)
	assert.Equal(t, "Email or username already exists", decodeBody(t, response)["message"])
}

func Test_Login_Success_OmitsPasswordHash(t *testing.T) {
	// arrange
	users := &userStub{
		loginFunc: func(_ context.Context, emailOrUsername string, password string) (catalogue.User, error) {
			assert.Equal(t, "ada", emailOrUsername)
			assert.Equal(t, "pw", password)

			return catalogue.User{ID: 42, Username: "ada", Email: "ada@example.com", PasswordHash: "hash", Role: catalogue.RoleStudent}, nil
		},
	}

	router := givenRouter(t, withUsers(users))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/auth/login",
		`{"emailOrUsername": "ada", "password": "pw"}`, "")

	// assert
	assert.Equal(t, http.StatusOK, response.Code)
	body := decodeBody(t, response)
	assert.Equal(t, "Login successful", body["message"])

	user, ok := body["user"].(map[string]any)
	assert.True(t, ok, "response should carry the account")
	assert.Equal(t, "ada", user["username"])
	assert.NotContains(t, response.Body.String(), "hash")
}

func Test_Login_Fails_WhenCredentialFieldsMissing(t *testing.T) {
	// arrange
	router := givenRouter(t)

	// act
	response := doRequest(t, router, http.MethodPost, "/api/auth/login", `{"password": "pw"}`, "")

	// assert
	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.Equal(t, "Email/Username and password are required", decodeBody(t, response)["message"])
}

func Test_Login_MapsInvalidCredentialsToUnauthorized(t *testing.T) {
	// arrange
	users := &userStub{
		loginFunc: func(context.Context, string, string) (catalogue.User, error) {
			return catalogue.User{}, catalogue.ErrInvalidCredentials
		},
	}

	router := givenRouter(t, withUsers(users))

	// act
	response := doRequest(t, router, http.MethodPost, "/api/auth/login",
		`{"emailOrUsername": "ada", "password": "wrong"}`, "")

	// assert
	assert.Equal(t, http.StatusUnauthorized, response.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, response)["message"])
}

func Test_CORS_PreflightShortCircuits(t *testing.T) {
	// arrange
	router := givenRouter(t)

	request := httptest.NewRequest(http.MethodOptions, "/api/borrow", nil)
	response := httptest.NewRecorder()

	// act
	router.ServeHTTP(response, request)

	// assert
	assert.Equal(t, http.StatusNoContent, response.Code)
	assert.Equal(t, "*", response.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, response.Header().Get("Access-Control-Allow-Headers"), httpapi.RoleHeader)
}

func Test_Healthz_RespondsOK(t *testing.T) {
	// arrange
	router := givenRouter(t)

	// act
	response := doRequest(t, router, http.MethodGet, "/healthz", "", "")

	// assert
	assert.Equal(t, http.StatusOK, response.Code)
}

// Test helper functions with t.Helper() for better error reporting

type routerOption func(*httpapi.Services)

func withLending(lending httpapi.LendingService) routerOption {
	return func(s *httpapi.Services) { s.Lending = lending }
}

func withHistory(history httpapi.HistoryService) routerOption {
	return func(s *httpapi.Services) { s.History = history }
}

func withCatalogue(books httpapi.CatalogueService) routerOption {
	return func(s *httpapi.Services) { s.Catalogue = books }
}

func withUsers(users httpapi.UserService) routerOption {
	return func(s *httpapi.Services) { s.Users = users }
}

func givenRouter(t *testing.T, options ...routerOption) http.Handler {
	t.Helper()

	services := httpapi.Services{
		Lending:   &lendingStub{},
		History:   &historyStub{},
		Catalogue: &catalogueStub{},
		Users:     &userStub{},
	}

	for _, option := range options {
		option(&services)
	}

	return httpapi.NewRouter(services)
}

func doRequest(t *testing.T, router http.Handler, method string, target string, body string, role string) *httptest.ResponseRecorder {
	t.Helper()

	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, target, nil)
	} else {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}

	if role != "" {
		request.Header.Set(httpapi.RoleHeader, role)
	}

	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)

	return response
}

func decodeBody(t *testing.T, response *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	body := make(map[string]any)
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &body))

	return body
}
