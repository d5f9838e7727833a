package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Authenticator decides whether an upgrade request may open a session and returns the
// initial display name. An empty name lets the hub assign a guest name.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// Anonymous admits every request without a name.
type Anonymous struct{}

// Authenticate implements Authenticator.
func (Anonymous) Authenticate(*http.Request) (string, error) {
	return "", nil
}

// JWTAuthenticator requires a signed token whose username claim passes Accept.
type JWTAuthenticator struct {
	Config *JWTConfig
	// Accept normalizes the username claim and reports whether it is a valid display name.
	Accept func(string) (string, bool)
}

// Authenticate implements Authenticator.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return "", ErrMissingToken
	}

	claims, err := ValidateToken(a.Config, raw)
	if err != nil {
		return "", err
	}

	if a.Accept == nil {
		return claims.Username, nil
	}
	name, ok := a.Accept(claims.Username)
	if !ok {
		return "", fmt.Errorf("%w: username %q rejected", ErrInvalidToken, claims.Username)
	}
	return name, nil
}

// TokenFromRequest reads the token from the "token" query parameter or an
// "Authorization: Bearer" header, in that order.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
