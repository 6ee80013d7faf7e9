// ABOUTME: Tests for identity-gateway subcommand argument parsing and output
// ABOUTME: Covers token minting, audit filters, and both log formats

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/config"
	"github.com/2389/identity-gateway/internal/store"
)

const testSecret = "cmd-test-secret-is-at-least-32-b"

func TestParseTokenArgs(t *testing.T) {
	opts, err := parseTokenArgs([]string{"--sub", "user-1", "--admin", "--ttl", "2h"})
	require.NoError(t, err)
	assert.Equal(t, tokenOptions{subject: "user-1", admin: true, ttl: 2 * time.Hour}, opts)

	opts, err = parseTokenArgs([]string{"--sub=user-2"})
	require.NoError(t, err)
	assert.False(t, opts.admin)
	assert.Equal(t, defaultCallerTokenTTL, opts.ttl)

	for _, args := range [][]string{
		{},
		{"--admin"},
		{"--sub", "u", "extra"},
		{"--sub", "u", "--ttl", "-1h"},
		{"--bogus"},
	} {
		_, err := parseTokenArgs(args)
		assert.Error(t, err, "args %v", args)
	}
}

func TestMintCallerToken(t *testing.T) {
	token, err := mintCallerToken(testSecret, tokenOptions{subject: "user-1", admin: true, ttl: time.Hour})
	require.NoError(t, err)

	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	caller, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", caller.UserID)
	assert.True(t, caller.IsAdmin())

	_, err = mintCallerToken("", tokenOptions{subject: "user-1", ttl: time.Hour})
	assert.Error(t, err)
}

func TestParseAuditArgs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	filter, err := parseAuditArgs([]string{
		"--actor", "admin-1",
		"--action", "delete_account",
		"--target", "uid-1",
		"--since", "24h",
		"--limit", "10",
	}, now)
	require.NoError(t, err)
	require.NotNil(t, filter.ActorUserID)
	assert.Equal(t, "admin-1", *filter.ActorUserID)
	require.NotNil(t, filter.Action)
	assert.Equal(t, store.AuditDeleteAccount, *filter.Action)
	require.NotNil(t, filter.TargetID)
	assert.Equal(t, "uid-1", *filter.TargetID)
	require.NotNil(t, filter.Since)
	assert.Equal(t, now.Add(-24*time.Hour), *filter.Since)
	assert.Equal(t, 10, filter.Limit)

	filter, err = parseAuditArgs(nil, now)
	require.NoError(t, err)
	assert.Nil(t, filter.ActorUserID)
	assert.Nil(t, filter.Since)

	_, err = parseAuditArgs([]string{"--action", "drop_tables"}, now)
	assert.ErrorContains(t, err, "unknown action")
}

func TestPrintAuditEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printAuditEntries(&buf, nil))
	assert.Equal(t, "(no audit entries)\n", buf.String())

	buf.Reset()
	require.NoError(t, printAuditEntries(&buf, []store.AuditEntry{{
		ActorUserID: "admin-1",
		Action:      store.AuditUpdateAccount,
		TargetID:    "uid-1",
		Timestamp:   time.Now(),
		Detail:      map[string]any{"fields": []string{"email"}},
	}}))
	out := buf.String()
	assert.Contains(t, out, "ACTOR")
	assert.Contains(t, out, "admin-1")
	assert.Contains(t, out, "update_account")
	assert.Contains(t, out, `{"fields":["email"]}`)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "value", rec["key"])
}

func TestNewLogger_Color(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.With("component", "admin").WithGroup("req").Error("directory operation failed", "operation", "deleteAccount")
	logger.Debug("debug line")

	out := buf.String()
	assert.Contains(t, out, "ERR directory operation failed component=admin req.operation=deleteAccount")
	assert.Contains(t, out, "DBG debug line")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
