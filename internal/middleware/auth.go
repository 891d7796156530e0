package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pharmacy-backend/internal/auth"
	"pharmacy-backend/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UsernameKey is the context key for storing the authenticated username.
const UsernameKey contextKey = "username"

// GetUsername extracts the authenticated username from the context.
// Returns empty string if not found.
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(UsernameKey).(string)
	return username
}

// BearerToken extracts the raw bearer token from the Authorization header.
// Returns auth.ErrMissingToken when no usable token is present.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", auth.ErrMissingToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", auth.ErrMissingToken
	}

	return parts[1], nil
}

// RequireAuth returns a middleware that validates bearer tokens and requires
// authentication. It rejects missing, malformed, revoked and expired tokens,
// re-resolves the token's username against the user store, and adds the
// username to the request context. Every failure maps to 403.
func RequireAuth(jwtManager *auth.JWTManager, revoked *auth.RevocationList, users auth.UserStorage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				response.Error(w, http.StatusForbidden, "Token is missing")
				return
			}

			if revoked.IsRevoked(token) {
				response.Error(w, http.StatusForbidden, "Token is invalid")
				return
			}

			claims, err := jwtManager.Validate(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Error(w, http.StatusForbidden, "Token has expired")
					return
				}
				response.Error(w, http.StatusForbidden, "Token is invalid")
				return
			}

			// The token must still map to a known user.
			user, err := users.GetUserByUsername(r.Context(), claims.Username)
			if err != nil || user == nil {
				response.Error(w, http.StatusForbidden, "Token is invalid")
				return
			}

			ctx := context.WithValue(r.Context(), UsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
