package httpapi

import (
	"net/http"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

// AuthHandler serves account registration and login.
type AuthHandler struct {
	users UserService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registration catalogue.Registration
	if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
		respondMessage(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	_, err := h.users.RegisterUser(r.Context(), registration)
	if err != nil {
		respondError(w, err, "Registration failed")
		return
	}

	respondMessage(w, http.StatusCreated, "User account created successfully")
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type loginResponse struct {
	Message string         `json:"message"`
	User    catalogue.User `json:"user"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondMessage(w, http.StatusBadRequest, "Email/Username and password are required")
		return
	}

	if request.EmailOrUsername == "" || request.Password == "" {
		respondMessage(w, http.StatusBadRequest, "Email/Username and password are required")
		return
	}

	user, err := h.users.Login(r.Context(), request.EmailOrUsername, request.Password)
	if err != nil {
		respondError(w, err, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Message: "Login successful", User: user})
}
