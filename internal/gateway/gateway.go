// ABOUTME: Gateway orchestrator that coordinates gRPC and HTTP servers
// ABOUTME: Wires caller verification, the identity directory, the audit log, and health endpoints

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/identity-gateway/internal/admin"
	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/config"
	"github.com/2389/identity-gateway/internal/directory"
	"github.com/2389/identity-gateway/internal/rpc"
	"github.com/2389/identity-gateway/internal/store"
)

// Tailnet ports used when tailscale is enabled.
const (
	tailscaleGRPCAddr = ":50051"
	tailscaleHTTPAddr = ":80"
)

// readyTimeout bounds the directory ping behind /health/ready.
const readyTimeout = 3 * time.Second

// pinger is implemented by directory backends that can report their own health.
type pinger interface {
	Ping(ctx context.Context) error
}

// Gateway orchestrates the identity-gateway server components.
// It serves the AccountAdmin service over gRPC and the callable protocol over HTTP.
type Gateway struct {
	config      *config.Config
	verifier    auth.TokenVerifier
	directory   directory.Client
	audit       store.AuditLog
	accounts    *admin.AccountService
	grpcServer  *grpc.Server
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// closers are released in reverse order on Shutdown
	closers []namedCloser

	shutdownOnce sync.Once
	shutdownErr  error
}

type namedCloser struct {
	label  string
	closer io.Closer
}

// New creates a Gateway from cfg. Nothing listens until Run is called.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		config: cfg,
		logger: logger,
	}

	verifier, err := g.buildVerifier()
	if err != nil {
		g.closeAll()
		return nil, err
	}
	g.verifier = verifier

	dir, err := g.openDirectory()
	if err != nil {
		g.closeAll()
		return nil, err
	}
	g.directory = dir

	var opts []admin.Option
	if cfg.Audit.Path != "" {
		auditStore, err := store.NewSQLiteStore(cfg.Audit.Path)
		if err != nil {
			g.closeAll()
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		g.audit = auditStore
		g.addCloser("audit log", auditStore)
		opts = append(opts, admin.WithAuditLog(auditStore))
		logger.Info("audit log enabled", "path", cfg.Audit.Path)
	}

	g.accounts = admin.NewAccountService(dir, cfg.Directory.InitialPassword, logger, opts...)

	g.grpcServer = grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(verifier, logger)),
	)
	rpc.RegisterAccountAdminServer(g.grpcServer, newAccountAdminServer(g.accounts))

	g.httpServer = &http.Server{
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// routes builds the HTTP mux.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	withCaller := auth.HTTPCallerMiddleware(g.verifier, g.logger)
	mux.Handle("POST /v1/{method}", withCaller(http.HandlerFunc(g.handleCallable)))
	return mux
}

// buildVerifier returns the caller-token verifier for the configured auth sources.
// With both an HMAC secret and a JWKS URL, a token accepted by either is trusted.
func (g *Gateway) buildVerifier() (auth.TokenVerifier, error) {
	cfg := g.config.Auth
	var verifiers auth.Verifiers

	if cfg.JWTSecret != "" {
		v, err := auth.NewJWTVerifier([]byte(cfg.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		verifiers = append(verifiers, v)
	}

	if cfg.JWKSURL != "" {
		v, err := auth.NewJWKSVerifier(auth.JWKSVerifierConfig{
			JWKSURL:   cfg.JWKSURL,
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			AdminRole: cfg.AdminRole,
			Logger:    g.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating JWKS verifier: %w", err)
		}
		g.addCloser("jwks verifier", v)
		verifiers = append(verifiers, v)
	}

	if len(verifiers) == 0 {
		return nil, errors.New("no caller token verifier configured")
	}
	g.logger.Info("caller authentication enabled", "hmac", cfg.JWTSecret != "", "jwks", cfg.JWKSURL != "")
	if len(verifiers) == 1 {
		return verifiers[0], nil
	}
	return verifiers, nil
}

// openDirectory creates the token minter and the configured directory backend.
func (g *Gateway) openDirectory() (directory.Client, error) {
	cfg := g.config.Directory

	minter, err := directory.NewTokenMinter([]byte(cfg.TokenSecret), cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token minter: %w", err)
	}

	switch cfg.Driver {
	case config.DriverSQLite:
		dir, err := directory.NewSQLiteDirectory(cfg.SQLite.Path, minter, g.logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite directory: %w", err)
		}
		g.addCloser("directory", dir)
		g.logger.Info("directory backend ready", "driver", cfg.Driver, "path", cfg.SQLite.Path)
		return dir, nil

	case config.DriverKeycloak:
		kc := cfg.Keycloak
		dir, err := directory.NewKeycloakDirectory(directory.KeycloakConfig{
			BaseURL:      kc.BaseURL,
			Realm:        kc.Realm,
			AdminRealm:   kc.AdminRealm,
			ClientID:     kc.ClientID,
			ClientSecret: kc.ClientSecret,
			Username:     kc.Username,
			Password:     kc.Password,
		}, minter, g.logger)
		if err != nil {
			return nil, fmt.Errorf("creating keycloak directory: %w", err)
		}
		g.logger.Info("directory backend ready", "driver", cfg.Driver, "realm", kc.Realm)
		return dir, nil

	default:
		return nil, fmt.Errorf("unknown directory driver %q", cfg.Driver)
	}
}

func (g *Gateway) addCloser(label string, c io.Closer) {
	g.closers = append(g.closers, namedCloser{label: label, closer: c})
}

// closeAll releases every registered closer and returns the failures.
func (g *Gateway) closeAll() []error {
	var errs []error
	for i := len(g.closers) - 1; i >= 0; i-- {
		c := g.closers[i]
		errs = appendCloseError(errs, c.label+" close", c.closer.Close())
	}
	g.closers = nil
	return errs
}

// setupTCPListeners opens the configured gRPC and HTTP addresses.
func (g *Gateway) setupTCPListeners() (grpcLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"grpc_addr", g.config.Server.GRPCAddr,
		"http_addr", g.config.Server.HTTPAddr,
	)

	grpcLn, err = net.Listen("tcp", g.config.Server.GRPCAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = grpcLn.Close()
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	return grpcLn, httpLn, nil
}

func (g *Gateway) warnIgnoredAddresses() {
	if g.config.Server.GRPCAddr != "" || g.config.Server.HTTPAddr != "" {
		g.logger.Warn("server.grpc_addr and server.http_addr are ignored when tailscale is enabled",
			"grpc_addr", g.config.Server.GRPCAddr,
			"http_addr", g.config.Server.HTTPAddr,
		)
	}
}

// setupListeners creates listeners based on configuration (Tailscale or TCP).
func (g *Gateway) setupListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	if g.config.Tailscale.Enabled {
		g.warnIgnoredAddresses()
		return g.setupTailscaleListeners(ctx)
	}
	return g.setupTCPListeners()
}

// startServers starts gRPC and HTTP servers in goroutines, returning error channel.
func (g *Gateway) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("gRPC server listening", "addr", grpcLn.Addr().String())
		if err := g.grpcServer.Serve(grpcLn); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run serves until ctx is canceled or a server fails, then shuts down.
func (g *Gateway) Run(ctx context.Context) error {
	grpcListener, httpListener, err := g.setupListeners(ctx)
	if err != nil {
		return err
	}

	errCh := g.startServers(grpcListener, httpListener)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown runs Shutdown with a fresh context since the Run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "identity-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListeners brings up a tsnet node and listens on its gRPC and HTTP ports.
func (g *Gateway) setupTailscaleListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, status)

	grpcLn, err = g.tsnetServer.Listen("tcp", tailscaleGRPCAddr)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("listening on tailscale gRPC port: %w", err)
	}

	httpLn, err = g.tsnetServer.Listen("tcp", tailscaleHTTPAddr)
	if err != nil {
		_ = grpcLn.Close()
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return grpcLn, httpLn, nil
}

func (g *Gateway) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// shutdownGRPCServer gracefully stops the gRPC server or force-stops on context cancel.
func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		g.grpcServer.Stop()
	}
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops both servers and releases the directory and audit log.
// Only the first call does any work; later and concurrent calls return its result.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.shutdownOnce.Do(func() {
		g.shutdownErr = g.shutdown(ctx)
	})
	return g.shutdownErr
}

func (g *Gateway) shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	g.shutdownGRPCServer(ctx)

	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	errs = append(errs, g.closeAll()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the directory backend answers a ping.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	p, ok := g.directory.(pinger)
	if !ok {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		g.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("directory unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%s)", g.config.Directory.Driver)
}
