// ABOUTME: JWKS-backed verification of caller tokens issued by an OIDC realm
// ABOUTME: Caches signing keys with background refresh and maps realm roles onto the admin claim

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrJWKSFetchFailed is returned when the key set cannot be loaded.
var ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")

// JWKS verifier defaults.
const (
	DefaultLeeway          = 30 * time.Second
	DefaultRefreshInterval = 1 * time.Hour
)

// JWKSVerifierConfig contains configuration for JWKSVerifier.
type JWKSVerifierConfig struct {
	JWKSURL         string
	Issuer          string        // expected iss; empty skips the check
	Audience        string        // expected aud; empty skips the check
	AdminRole       string        // realm role that implies the admin claim; empty disables
	Leeway          time.Duration // clock skew tolerance
	RefreshInterval time.Duration // JWKS refresh interval
	Logger          *slog.Logger
}

// JWKSVerifier implements TokenVerifier against a remote JSON Web Key Set.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	config JWKSVerifierConfig
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewJWKSVerifier loads the key set and starts its background refresh.
func NewJWKSVerifier(config JWKSVerifierConfig) (*JWKSVerifier, error) {
	if config.JWKSURL == "" {
		return nil, fmt.Errorf("%w: JWKSURL is required", ErrJWKSFetchFailed)
	}
	if config.Leeway == 0 {
		config.Leeway = DefaultLeeway
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initializing JWKS verifier",
		slog.String("jwks_url", config.JWKSURL),
		slog.Duration("refresh_interval", config.RefreshInterval),
	)

	ctx, cancel := context.WithCancel(context.Background())

	storage, err := jwkset.NewStorageFromHTTP(config.JWKSURL, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		RefreshInterval: config.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("failed to refresh JWKS", slog.Any("error", err))
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrJWKSFetchFailed, err)
	}

	jwks, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrJWKSFetchFailed, err)
	}

	return &JWKSVerifier{
		jwks:   jwks,
		config: config,
		logger: logger,
		cancel: cancel,
	}, nil
}

// Verify validates the token signature and registered claims, then builds a Caller.
func (v *JWKSVerifier) Verify(_ context.Context, tokenString string) (*Caller, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithLeeway(v.config.Leeway),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(tokenString, v.jwks.Keyfunc, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	caller, err := callerFromClaims(claims)
	if err != nil {
		return nil, err
	}

	if v.config.AdminRole != "" && hasRealmRole(claims, v.config.AdminRole) {
		caller.Claims[AdminClaim] = true
	}

	return caller, nil
}

// Close stops background JWKS refresh.
func (v *JWKSVerifier) Close() error {
	v.logger.Info("closing JWKS verifier")
	if v.cancel != nil {
		v.cancel()
	}
	return nil
}

// hasRealmRole reports whether realm_access.roles contains role.
func hasRealmRole(claims jwt.MapClaims, role string) bool {
	realmAccess, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return false
	}
	roles, ok := realmAccess["roles"].([]any)
	if !ok {
		return false
	}
	for _, r := range roles {
		if s, ok := r.(string); ok && s == role {
			return true
		}
	}
	return false
}
