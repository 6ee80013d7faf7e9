// ABOUTME: Mock AuditLog implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject append failures

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory AuditLog implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	entries []AuditEntry

	// AppendErr, when set, is returned by AppendAuditLog.
	AppendErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// AppendAuditLog stores a copy of the entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	prepareAuditEntry(e)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

// ListAuditLog returns matching entries, newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []AuditEntry{}
	for _, e := range m.entries {
		if matchesAuditFilter(e, f) {
			result = append(result, e)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if limit := normalizeAuditLimit(f.Limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

func matchesAuditFilter(e AuditEntry, f AuditFilter) bool {
	switch {
	case f.Since != nil && e.Timestamp.Before(*f.Since):
		return false
	case f.Until != nil && e.Timestamp.After(*f.Until):
		return false
	case f.ActorUserID != nil && e.ActorUserID != *f.ActorUserID:
		return false
	case f.Action != nil && e.Action != *f.Action:
		return false
	case f.TargetType != nil && e.TargetType != *f.TargetType:
		return false
	case f.TargetID != nil && e.TargetID != *f.TargetID:
		return false
	}
	return true
}
