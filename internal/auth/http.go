// ABOUTME: HTTP middleware resolving the caller from the Authorization header
// ABOUTME: Mirrors the gRPC interceptor so both transports hand the same Caller to handlers

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPCallerMiddleware creates an HTTP middleware that attaches the verified Caller to the request context.
// A missing Authorization header leaves the Caller unset; an invalid one is rejected with 401.
func HTTPCallerMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, errMsg := extractBearerToken(header)
			if errMsg != "" {
				writeUnauthenticated(w, errMsg)
				return
			}

			caller, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if logger != nil {
					logger.Warn("auth failure", "reason", "invalid_token", "remote_addr", r.RemoteAddr, "error", err)
				}
				writeUnauthenticated(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// writeUnauthenticated writes a callable-protocol error body with status 401.
func writeUnauthenticated(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(unauthenticatedBody{Error: unauthenticatedError{
		Status:  "UNAUTHENTICATED",
		Message: msg,
	}})
}

type unauthenticatedBody struct {
	Error unauthenticatedError `json:"error"`
}

type unauthenticatedError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
