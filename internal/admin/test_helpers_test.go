// ABOUTME: Shared test helpers for admin package tests
// ABOUTME: Builds services over a mock directory and captures log records as JSON

package admin

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/directory"
	"github.com/2389/identity-gateway/internal/store"
)

const testInitialPassword = "Central@123"

var (
	adminCaller    = &auth.Caller{UserID: "admin-1", Claims: map[string]any{"admin": true}}
	nonAdminCaller = &auth.Caller{UserID: "user-1", Claims: map[string]any{"admin": false}}
)

type testEnv struct {
	svc   *AccountService
	dir   *directory.MockClient
	audit *store.MockStore
	logs  *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	dir := directory.NewMockClient()
	audit := store.NewMockStore()
	return &testEnv{
		svc:   NewAccountService(dir, testInitialPassword, logger, WithAuditLog(audit)),
		dir:   dir,
		audit: audit,
		logs:  logs,
	}
}

// records decodes every JSON log line written so far.
func (e *testEnv) records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(e.logs.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

// errorRecords returns log records at ERROR level.
func (e *testEnv) errorRecords(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, rec := range e.records(t) {
		if rec["level"] == "ERROR" {
			out = append(out, rec)
		}
	}
	return out
}

func requireCode(t *testing.T, err error, want codes.Code) *status.Status {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected gRPC status error, got %v", err)
	assert.Equal(t, want, st.Code(), "message: %s", st.Message())
	return st
}

func strPtr(s string) *string { return &s }
