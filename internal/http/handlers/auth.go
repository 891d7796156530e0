// Package handlers implements the HTTP endpoints of the purchase backend.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pharmacy-backend/internal/auth"
	"pharmacy-backend/internal/http/response"
	"pharmacy-backend/internal/middleware"
)

// AuthHandler serves signup, login and logout.
type AuthHandler struct {
	authenticator *auth.PasswordAuthenticator
	jwtManager    *auth.JWTManager
	revoked       *auth.RevocationList
	logger        *slog.Logger
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(authenticator *auth.PasswordAuthenticator, jwtManager *auth.JWTManager, revoked *auth.RevocationList, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		revoked:       revoked,
		logger:        logger,
	}
}

// credentialsRequest is the body of signup and login requests.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup creates a new user account.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if req.Username == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "Username and password cannot be empty")
		return
	}

	_, err := h.authenticator.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			response.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.logger.Error("Signup failed", "username", req.Username, "error", err)
		response.Error(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	h.logger.Info("User created", "username", req.Username)
	response.Success(w, http.StatusCreated, "User created successfully", nil)
}

// Login verifies credentials and issues a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if req.Username == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "Username and password cannot be empty")
		return
	}

	user, err := h.authenticator.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("Login failed", "username", req.Username)
		response.Error(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.jwtManager.Generate(user.Username)
	if err != nil {
		h.logger.Error("Failed to generate token", "username", user.Username, "error", err)
		response.Error(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	h.logger.Info("User logged in", "username", user.Username)
	response.Success(w, http.StatusOK, "Login successful", map[string]string{
		"token":    token,
		"username": user.Username,
	})
}

// Logout revokes the presented token. The auth middleware has already
// validated it, so the token is known to be well-formed and unexpired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.BearerToken(r)
	if err != nil {
		response.Error(w, http.StatusForbidden, "Token is missing")
		return
	}

	h.revoked.Revoke(token)

	h.logger.Info("User logged out", "username", middleware.GetUsername(r.Context()))
	response.Success(w, http.StatusOK, "Logged out successfully", nil)
}
