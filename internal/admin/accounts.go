// ABOUTME: The four account operations: elevate, create, update, delete
// ABOUTME: Directory errors are logged with context and surfaced only as Internal

package admin

import (
	"context"

	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/directory"
	"github.com/2389/identity-gateway/internal/store"
)

// Success messages returned by update and delete.
const (
	MessageAccountUpdated = "account updated successfully"
	MessageAccountDeleted = "account deleted successfully"
)

// TokenResult is the result of GrantElevatedToken.
type TokenResult struct {
	Token string
}

// AccountResult is the result of CreateAccount.
type AccountResult struct {
	UID string
}

// MessageResult is the result of UpdateAccount and DeleteAccount.
type MessageResult struct {
	Message string
}

// GrantElevatedToken issues a token for the target carrying the admin claim.
//
// Any authenticated caller may call this, for any target. This lets a new
// deployment bootstrap its first admin, and it also lets every authenticated
// caller mint an admin token. Restrict who can obtain caller tokens before
// exposing it.
func (s *AccountService) GrantElevatedToken(ctx context.Context, caller *auth.Caller, req GrantElevatedTokenRequest) (*TokenResult, error) {
	if err := auth.Authorize(caller, false); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, err := s.dir.IssueToken(ctx, req.TargetUserID, map[string]any{auth.AdminClaim: true})
	if err != nil {
		return nil, s.directoryFailure(ctx, MethodGrantElevatedToken, err, "target_user_id", req.TargetUserID)
	}

	s.logger.InfoContext(ctx, "issued elevated token", "caller", caller.UserID, "target_user_id", req.TargetUserID)
	s.recordAudit(ctx, caller, store.AuditGrantElevatedToken, req.TargetUserID, map[string]any{
		"claims": []string{auth.AdminClaim},
	})
	return &TokenResult{Token: token}, nil
}

// CreateAccount creates an account with the configured initial password.
func (s *AccountService) CreateAccount(ctx context.Context, caller *auth.Caller, req CreateAccountRequest) (*AccountResult, error) {
	if err := auth.Authorize(caller, true); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	uid, err := s.dir.CreateAccount(ctx, req.Email, s.initialPassword, req.DisplayName)
	if err != nil {
		return nil, s.directoryFailure(ctx, MethodCreateAccount, err, "email", req.Email)
	}

	s.recordAudit(ctx, caller, store.AuditCreateAccount, uid, map[string]any{
		"email": req.Email,
	})
	return &AccountResult{UID: uid}, nil
}

// UpdateAccount changes only the fields present in req.
func (s *AccountService) UpdateAccount(ctx context.Context, caller *auth.Caller, req UpdateAccountRequest) (*MessageResult, error) {
	if err := auth.Authorize(caller, true); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	update := directory.AccountUpdate{
		DisplayName: nonEmpty(req.DisplayName),
		Email:       nonEmpty(req.Email),
	}
	if err := s.dir.UpdateAccount(ctx, req.TargetUserID, update); err != nil {
		return nil, s.directoryFailure(ctx, MethodUpdateAccount, err, "target_user_id", req.TargetUserID)
	}

	s.recordAudit(ctx, caller, store.AuditUpdateAccount, req.TargetUserID, map[string]any{
		"fields": req.fieldNames(),
	})
	return &MessageResult{Message: MessageAccountUpdated}, nil
}

// DeleteAccount removes the account. Existence is not checked first.
func (s *AccountService) DeleteAccount(ctx context.Context, caller *auth.Caller, req DeleteAccountRequest) (*MessageResult, error) {
	if err := auth.Authorize(caller, true); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.dir.DeleteAccount(ctx, req.TargetUserID); err != nil {
		return nil, s.directoryFailure(ctx, MethodDeleteAccount, err, "target_user_id", req.TargetUserID)
	}

	s.recordAudit(ctx, caller, store.AuditDeleteAccount, req.TargetUserID, nil)
	return &MessageResult{Message: MessageAccountDeleted}, nil
}
