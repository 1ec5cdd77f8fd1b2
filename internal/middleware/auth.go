package middleware

import (
	"encoding/json"
	"net/http"
)

// SessionGate reports whether a user is signed in.
type SessionGate interface {
	Authenticated() bool
}

// RequireSession rejects requests while nobody is signed in.
func RequireSession(gate SessionGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Authenticated() {
				writeError(w, http.StatusUnauthorized, "Please sign in to continue")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey validates the client key from the "api_key" header.
// With no keys configured every request passes.
func ClientKey(keys []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("api_key")

			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized: API key required")
				return
			}

			valid := false
			for _, validKey := range keys {
				if apiKey == validKey {
					valid = true
					break
				}
			}

			if !valid {
				writeError(w, http.StatusForbidden, "Forbidden: Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
