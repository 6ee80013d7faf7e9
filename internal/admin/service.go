// ABOUTME: AccountService dispatches account mutations to the identity directory
// ABOUTME: Each operation authorizes, validates, then makes exactly one directory call

package admin

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/directory"
	"github.com/2389/identity-gateway/internal/store"
)

// Method names accepted by Invoke.
const (
	MethodGrantElevatedToken = "grantElevatedToken"
	MethodCreateAccount      = "createAccount"
	MethodUpdateAccount      = "updateAccount"
	MethodDeleteAccount      = "deleteAccount"
)

// Methods lists every method Invoke accepts.
var Methods = []string{
	MethodGrantElevatedToken,
	MethodCreateAccount,
	MethodUpdateAccount,
	MethodDeleteAccount,
}

// AuditAppender records successful mutations.
type AuditAppender interface {
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error
}

// AccountService applies account mutations on behalf of verified callers.
// It holds no per-call state and is safe for concurrent use.
type AccountService struct {
	dir             directory.Client
	initialPassword string
	logger          *slog.Logger
	audit           AuditAppender
}

// Option configures an AccountService.
type Option func(*AccountService)

// WithAuditLog records every successful mutation in a.
func WithAuditLog(a AuditAppender) Option {
	return func(s *AccountService) { s.audit = a }
}

// NewAccountService creates an AccountService.
// initialPassword is the credential every created account starts with.
func NewAccountService(dir directory.Client, initialPassword string, logger *slog.Logger, opts ...Option) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AccountService{
		dir:             dir,
		initialPassword: initialPassword,
		logger:          logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invoke runs method with an untyped payload, as delivered by the gRPC and HTTP transports.
// The caller is authorized before the payload is decoded.
func (s *AccountService) Invoke(ctx context.Context, caller *auth.Caller, method string, payload map[string]any) (map[string]any, error) {
	switch method {
	case MethodGrantElevatedToken:
		if err := auth.Authorize(caller, false); err != nil {
			return nil, err
		}
		req, err := decodeGrantElevatedToken(payload)
		if err != nil {
			return nil, err
		}
		res, err := s.GrantElevatedToken(ctx, caller, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"token": res.Token}, nil

	case MethodCreateAccount:
		if err := auth.Authorize(caller, true); err != nil {
			return nil, err
		}
		req, err := decodeCreateAccount(payload)
		if err != nil {
			return nil, err
		}
		res, err := s.CreateAccount(ctx, caller, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"uid": res.UID}, nil

	case MethodUpdateAccount:
		if err := auth.Authorize(caller, true); err != nil {
			return nil, err
		}
		req, err := decodeUpdateAccount(payload)
		if err != nil {
			return nil, err
		}
		res, err := s.UpdateAccount(ctx, caller, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"message": res.Message}, nil

	case MethodDeleteAccount:
		if err := auth.Authorize(caller, true); err != nil {
			return nil, err
		}
		req, err := decodeDeleteAccount(payload)
		if err != nil {
			return nil, err
		}
		res, err := s.DeleteAccount(ctx, caller, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"message": res.Message}, nil

	default:
		return nil, status.Errorf(codes.Unimplemented, "unknown method %q", method)
	}
}

// directoryFailure logs a directory error and returns the caller-safe Internal error.
func (s *AccountService) directoryFailure(ctx context.Context, op string, err error, attrs ...any) error {
	s.logger.ErrorContext(ctx, "directory operation failed",
		append([]any{"operation", op, "error", err}, attrs...)...)
	return status.Error(codes.Internal, "failed to "+opDescriptions[op])
}

// recordAudit appends an audit entry. Failures are logged and never fail the operation.
func (s *AccountService) recordAudit(ctx context.Context, caller *auth.Caller, action store.AuditAction, targetID string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.AppendAuditLog(ctx, &store.AuditEntry{
		ActorUserID: caller.UserID,
		Action:      action,
		TargetType:  store.AuditTargetAccount,
		TargetID:    targetID,
		Detail:      detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to append audit log", "action", action, "target_user_id", targetID, "error", err)
	}
}

var opDescriptions = map[string]string{
	MethodGrantElevatedToken: "grant elevated token",
	MethodCreateAccount:      "create account",
	MethodUpdateAccount:      "update account",
	MethodDeleteAccount:      "delete account",
}
