// ABOUTME: AuditLog interface for identity-gateway persistence
// ABOUTME: The gateway persists only its own audit trail; accounts live in the directory

package store

import "context"

// AuditLog records successful administrative mutations.
type AuditLog interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
	Close() error
}

var (
	_ AuditLog = (*SQLiteStore)(nil)
	_ AuditLog = (*MockStore)(nil)
)
