package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tribalfm/tribal/internal/auth"
)

var errNoAuthCookie = errors.New("missing auth_token cookie")

// authenticatedUserID resolves the requesting user from the auth_token cookie.
func authenticatedUserID(r *http.Request) (uuid.UUID, error) {
	cookie := r.Header.Get("Cookie")
	if !strings.Contains(cookie, "auth_token=") {
		return uuid.Nil, errNoAuthCookie
	}
	userIDStr, err := auth.AuthenticateJWT(extractCookieToken(cookie, "auth_token"))
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(userIDStr)
}

// extractCookieToken extracts a named cookie value from a "Cookie" header, or
// returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}
