// ABOUTME: Unit tests for the HTTP caller middleware
// ABOUTME: Verifies callers are attached to the request and bad credentials get a 401 body

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareTest(t *testing.T) (*JWTVerifier, http.Handler, **Caller) {
	t.Helper()

	verifier, err := NewJWTVerifier(interceptorTestSecret)
	require.NoError(t, err)

	var seen *Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return verifier, HTTPCallerMiddleware(verifier, nil)(next), &seen
}

func TestHTTPCallerMiddleware_ValidToken(t *testing.T) {
	verifier, handler, seen := newMiddlewareTest(t)
	token, err := verifier.Generate("u1", nil, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/createAccount", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, *seen)
	assert.Equal(t, "u1", (*seen).UserID)
	assert.False(t, (*seen).IsAdmin())
}

func TestHTTPCallerMiddleware_NoHeader(t *testing.T) {
	_, handler, seen := newMiddlewareTest(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/createAccount", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, *seen)
}

func TestHTTPCallerMiddleware_Rejected(t *testing.T) {
	headers := []string{"Token abc", "Bearer ", "Bearer not-a-jwt"}

	for _, header := range headers {
		t.Run(header, func(t *testing.T) {
			_, handler, seen := newMiddlewareTest(t)

			req := httptest.NewRequest(http.MethodPost, "/v1/createAccount", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, *seen)

			var body struct {
				Error struct {
					Status  string `json:"status"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHENTICATED", body.Error.Status)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestWriteUnauthenticated_EscapesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeUnauthenticated(rec, `token "abc" rejected`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"status":"UNAUTHENTICATED","message":"token \"abc\" rejected"}}`, rec.Body.String())
}
