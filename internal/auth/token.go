// ABOUTME: JWT token verification for resolving the caller of a request
// ABOUTME: Uses HS256 signing with configurable secret and flattens custom claims

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted HS256 secret length in bytes.
const MinSecretLength = 32

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrWeakSecret   = errors.New("jwt secret too short")
)

// customClaimsKey holds the nested custom claims of tokens minted by the directory.
const customClaimsKey = "claims"

// reservedClaims cannot be overridden by nested custom claims.
var reservedClaims = map[string]bool{
	"sub": true, "iss": true, "aud": true, "exp": true,
	"iat": true, "nbf": true, "jti": true, "uid": true,
}

// TokenVerifier resolves a bearer token into a verified Caller.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*Caller, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}
	return &JWTVerifier{secret: secret}, nil
}

// Verify validates the token and builds a Caller from its claims.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*Caller, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	return callerFromClaims(claims)
}

// Generate creates a signed caller token for subject carrying the given custom claims.
func (v *JWTVerifier) Generate(subject string, custom map[string]any, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	for k, v := range custom {
		if !reservedClaims[k] {
			claims[k] = v
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// callerFromClaims copies verified claims into a Caller.
// Entries of a nested "claims" object are lifted to the top level.
func callerFromClaims(claims jwt.MapClaims) (*Caller, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub, _ = claims["uid"].(string)
	}
	if sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	flat := make(map[string]any, len(claims))
	for k, v := range claims {
		if k == customClaimsKey {
			continue
		}
		flat[k] = v
	}
	if nested, ok := claims[customClaimsKey].(map[string]any); ok {
		for k, v := range nested {
			if !reservedClaims[k] {
				flat[k] = v
			}
		}
	}

	return &Caller{UserID: sub, Claims: flat}, nil
}

// Verifiers tries each verifier in order and returns the first verified Caller.
type Verifiers []TokenVerifier

// Verify implements TokenVerifier.
func (vs Verifiers) Verify(ctx context.Context, tokenString string) (*Caller, error) {
	err := ErrInvalidToken
	for _, v := range vs {
		caller, verr := v.Verify(ctx, tokenString)
		if verr == nil {
			return caller, nil
		}
		err = verr
	}
	return nil, err
}
