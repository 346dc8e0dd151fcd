package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingKey indicates that the Authorization header was not provided.
	ErrMissingKey = errors.New("missing access key")
	// ErrInvalidPrefix indicates the header did not use the required Key prefix.
	ErrInvalidPrefix = errors.New("invalid authorization prefix")
	// ErrInvalidKey indicates the key did not match.
	ErrInvalidKey = errors.New("invalid access key")
)

// ExtractKey parses an "Authorization: Key <token>" header.
func ExtractKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingKey
	}

	if !strings.HasPrefix(header, "Key ") {
		return "", ErrInvalidPrefix
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Key "))
	if token == "" {
		return "", ErrMissingKey
	}

	return token, nil
}

// Verify checks r carries expected.
func Verify(r *http.Request, expected string) error {
	token, err := ExtractKey(r)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// Middleware rejects requests without the expected key. An empty expected
// key disables the check.
func Middleware(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Verify(r, expected); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
