// Package store persists the gateway's audit trail using SQLite.
//
// Accounts are owned by the external directory and are never stored here.
// The only table is audit_log, one row per successful mutation:
//
//	err := s.AppendAuditLog(ctx, &store.AuditEntry{
//		ActorUserID: caller.UserID,
//		Action:      store.AuditCreateAccount,
//		TargetType:  store.AuditTargetAccount,
//		TargetID:    uid,
//	})
//
// ListAuditLog filters by time range, actor, action and target, newest first.
//
// SQLiteStore uses modernc.org/sqlite (pure Go, no cgo). MockStore keeps entries
// in memory for tests.
package store
