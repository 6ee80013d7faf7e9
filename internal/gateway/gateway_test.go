// ABOUTME: Tests for Gateway construction, lifecycle, and health endpoints
// ABOUTME: Runs real listeners on free localhost ports against a temporary SQLite directory

package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/config"
)

const (
	testJWTSecret       = "gateway-test-jwt-secret-32-bytes"
	testTokenSecret     = "gateway-test-mint-secret-32bytes"
	testInitialPassword = "Central@123"
)

// freeAddr returns a localhost address that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// testConfig creates a minimal config for testing with available ports.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		Server: config.ServerConfig{
			GRPCAddr: freeAddr(t),
			HTTPAddr: freeAddr(t),
		},
		Auth: config.AuthConfig{
			JWTSecret: testJWTSecret,
		},
		Directory: config.DirectoryConfig{
			Driver:          config.DriverSQLite,
			InitialPassword: testInitialPassword,
			TokenSecret:     testTokenSecret,
			TokenIssuer:     "identity-gateway-test",
			SQLite:          config.SQLiteConfig{Path: filepath.Join(dir, "directory.db")},
		},
		Audit: config.AuditConfig{
			Path: filepath.Join(dir, "audit.db"),
		},
	}
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callerToken mints a caller token accepted by the gateway built from testConfig.
func callerToken(t *testing.T, subject string, admin bool) string {
	t.Helper()
	v, err := auth.NewJWTVerifier([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("NewJWTVerifier() failed: %v", err)
	}
	token, err := v.Generate(subject, map[string]any{"admin": admin}, time.Hour)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	return token
}

// newTestGateway builds a gateway that is shut down when the test ends.
func newTestGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()
	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = gw.Shutdown(context.Background()) })
	return gw
}

// runGateway starts gw in the background until the test ends and waits for
// Run to return before the Shutdown cleanup from newTestGateway runs.
func runGateway(t *testing.T, gw *Gateway) {
	t.Helper()
	ctx := t.Context()
	done := make(chan error, 1)
	go func() {
		done <- gw.Run(ctx)
	}()
	t.Cleanup(func() {
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() returned unexpected error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("gateway did not shutdown in time")
		}
	})

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)
}

func TestGatewayNew(t *testing.T) {
	cfg := testConfig(t)
	gw := newTestGateway(t, cfg)

	if gw.config != cfg {
		t.Error("gateway config mismatch")
	}
	if gw.directory == nil {
		t.Error("directory should not be nil")
	}
	if gw.audit == nil {
		t.Error("audit should not be nil when audit.path is set")
	}
	if gw.accounts == nil {
		t.Error("accounts should not be nil")
	}
}

func TestGatewayNew_WithoutAuditLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Path = ""

	gw := newTestGateway(t, cfg)
	if gw.audit != nil {
		t.Error("audit should be nil when audit.path is empty")
	}
}

func TestGatewayNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name:   "no verifier",
			mutate: func(c *config.Config) { c.Auth.JWTSecret = "" },
		},
		{
			name:   "weak caller secret",
			mutate: func(c *config.Config) { c.Auth.JWTSecret = "short" },
		},
		{
			name:   "weak minting secret",
			mutate: func(c *config.Config) { c.Directory.TokenSecret = "short" },
		},
		{
			name:   "unknown driver",
			mutate: func(c *config.Config) { c.Directory.Driver = "ldap" },
		},
		{
			name: "keycloak without realm",
			mutate: func(c *config.Config) {
				c.Directory.Driver = config.DriverKeycloak
				c.Directory.Keycloak.BaseURL = "http://127.0.0.1:1"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			if _, err := New(cfg, testLogger()); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestGatewayRunAndShutdown(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)

	// Shutdown via context cancel
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("gateway did not shutdown in time")
	}
}

func TestGatewayRun_AddressInUse(t *testing.T) {
	cfg := testConfig(t)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer busy.Close()
	cfg.Server.HTTPAddr = busy.Addr().String()

	gw := newTestGateway(t, cfg)
	if err := gw.Run(t.Context()); err == nil {
		t.Error("Run() succeeded on an address in use, want error")
	}
}

func TestGatewayShutdown_Concurrent(t *testing.T) {
	for i := range 10 {
		cfg := testConfig(t)
		gw, err := New(cfg, testLogger())
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		runErr := make(chan error, 1)
		go func() {
			runErr <- gw.Run(ctx)
		}()
		time.Sleep(100 * time.Millisecond)

		var wg sync.WaitGroup
		shutdownErrs := make([]error, 3)
		for j := range shutdownErrs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				shutdownErrs[j] = gw.Shutdown(context.Background())
			}()
		}
		cancel()
		wg.Wait()

		for j, err := range shutdownErrs {
			if err != nil {
				t.Errorf("iteration %d: Shutdown() #%d failed: %v", i, j, err)
			}
		}

		select {
		case err := <-runErr:
			if err != nil {
				t.Errorf("iteration %d: Run() returned unexpected error: %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: gateway did not shutdown in time", i)
		}

		if gw.closers != nil {
			t.Errorf("iteration %d: closers not released", i)
		}
	}
}

func TestGatewayShutdown_Repeated(t *testing.T) {
	gw, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := gw.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown() failed: %v", err)
	}
	if err := gw.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() failed: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	cfg := testConfig(t)
	gw := newTestGateway(t, cfg)
	runGateway(t, gw)

	resp, err := http.Get("http://" + cfg.Server.HTTPAddr + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	cfg := testConfig(t)
	gw := newTestGateway(t, cfg)
	runGateway(t, gw)

	resp, err := http.Get("http://" + cfg.Server.HTTPAddr + "/health/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint_DirectoryDown(t *testing.T) {
	cfg := testConfig(t)
	gw := newTestGateway(t, cfg)
	runGateway(t, gw)

	// Closing the directory database makes its ping fail
	if err := gw.directory.(io.Closer).Close(); err != nil {
		t.Fatalf("closing directory failed: %v", err)
	}

	resp, err := http.Get("http://" + cfg.Server.HTTPAddr + "/health/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestResolveTailscaleStateDir(t *testing.T) {
	got, err := resolveTailscaleStateDir("/var/lib/identity-gateway/ts")
	if err != nil {
		t.Fatalf("resolveTailscaleStateDir() failed: %v", err)
	}
	if got != "/var/lib/identity-gateway/ts" {
		t.Errorf("state dir = %q, want configured value", got)
	}

	t.Setenv("HOME", "/home/tester")
	got, err = resolveTailscaleStateDir("")
	if err != nil {
		t.Fatalf("resolveTailscaleStateDir() failed: %v", err)
	}
	if want := filepath.Join("/home/tester", ".local", "share", "identity-gateway", "tailscale"); got != want {
		t.Errorf("state dir = %q, want %q", got, want)
	}
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	if _, err := resolveTailscaleAuthKey(""); err == nil {
		t.Error("expected error with no auth key")
	}

	t.Setenv("TS_AUTHKEY", "tskey-env")
	got, err := resolveTailscaleAuthKey("")
	if err != nil || got != "tskey-env" {
		t.Errorf("resolveTailscaleAuthKey() = %q, %v; want tskey-env", got, err)
	}

	got, err = resolveTailscaleAuthKey("tskey-config")
	if err != nil || got != "tskey-config" {
		t.Errorf("resolveTailscaleAuthKey() = %q, %v; want tskey-config", got, err)
	}
}
