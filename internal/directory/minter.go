// ABOUTME: Custom token minting shared by the directory backends
// ABOUTME: Produces HS256 JWTs with uid and a nested claims object

package directory

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of minted tokens when none is configured.
const DefaultTokenTTL = time.Hour

// minTokenSecretLength matches the caller-token verifier's minimum.
const minTokenSecretLength = 32

var (
	// ErrWeakTokenSecret is returned when the signing secret is too short.
	ErrWeakTokenSecret = errors.New("token secret must be at least 32 bytes")

	// ErrReservedClaim is returned when custom claims use a registered JWT claim name.
	ErrReservedClaim = errors.New("custom claims use a reserved name")
)

var reservedTokenClaims = map[string]struct{}{
	"acr": {}, "amr": {}, "at_hash": {}, "aud": {}, "auth_time": {}, "azp": {},
	"cnf": {}, "c_hash": {}, "exp": {}, "iat": {}, "iss": {}, "jti": {},
	"nbf": {}, "nonce": {}, "sub": {}, "uid": {},
}

// TokenMinter signs custom tokens for directory accounts.
type TokenMinter struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenMinter creates a minter. A zero ttl uses DefaultTokenTTL.
func NewTokenMinter(secret []byte, issuer string, ttl time.Duration) (*TokenMinter, error) {
	if len(secret) < minTokenSecretLength {
		return nil, ErrWeakTokenSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenMinter{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Mint returns a signed token for uid. Claims are nested under "claims".
func (m *TokenMinter) Mint(uid string, claims map[string]any) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("%w: empty uid", ErrInvalidAccount)
	}
	for name := range claims {
		if _, ok := reservedTokenClaims[name]; ok {
			return "", fmt.Errorf("%w: %q", ErrReservedClaim, name)
		}
	}

	now := m.now()
	mc := jwt.MapClaims{
		"sub": uid,
		"uid": uid,
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	}
	if m.issuer != "" {
		mc["iss"] = m.issuer
	}
	if len(claims) > 0 {
		nested := make(map[string]any, len(claims))
		for k, v := range claims {
			nested[k] = v
		}
		mc["claims"] = nested
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
