// ABOUTME: Authorization guard deciding whether a caller may run an operation
// ABOUTME: Pure decision over the verified caller and the required privilege

package auth

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Guard error messages, returned verbatim to callers.
const (
	msgUnauthenticated  = "request is not authenticated"
	msgPermissionDenied = "only admins can perform this operation"
)

// Authorize decides whether caller may proceed.
// An absent caller is Unauthenticated regardless of requireAdmin.
// When requireAdmin is set, the caller's admin claim must be boolean true.
func Authorize(caller *Caller, requireAdmin bool) error {
	if caller == nil {
		return status.Error(codes.Unauthenticated, msgUnauthenticated)
	}

	if requireAdmin && !caller.IsAdmin() {
		return status.Error(codes.PermissionDenied, msgPermissionDenied)
	}

	return nil
}
