// ABOUTME: Client interface for the external identity directory and shared account types
// ABOUTME: Backends: embedded SQLite, Keycloak Admin REST, and an in-memory mock for tests

package directory

import (
	"context"
	"errors"
)

var (
	// ErrAccountNotFound is returned when no account has the given uid.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailExists is returned when another account already uses the email.
	ErrEmailExists = errors.New("email already in use")

	// ErrInvalidAccount is returned when the directory rejects account fields.
	ErrInvalidAccount = errors.New("invalid account fields")
)

// AccountUpdate carries the fields to change on an account.
// Nil fields are left untouched.
type AccountUpdate struct {
	DisplayName *string
	Email       *string
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.DisplayName == nil && u.Email == nil
}

// Client is the narrow surface of the identity directory the gateway mutates.
// Implementations must honor ctx cancellation.
type Client interface {
	// IssueToken mints a custom token for userID carrying claims.
	IssueToken(ctx context.Context, userID string, claims map[string]any) (string, error)

	// CreateAccount creates an account and returns its uid.
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)

	// UpdateAccount applies the non-nil fields of update.
	UpdateAccount(ctx context.Context, userID string, update AccountUpdate) error

	// DeleteAccount removes the account.
	DeleteAccount(ctx context.Context, userID string) error
}
