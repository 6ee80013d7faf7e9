// ABOUTME: In-memory Client implementation for testing
// ABOUTME: Records every call and returns configurable results and errors

package directory

import (
	"context"
	"sync"
)

// Call is one recorded directory call.
type Call struct {
	Method      string
	UserID      string
	Email       string
	Password    string
	DisplayName string
	Claims      map[string]any
	Update      AccountUpdate
}

// MockClient is a Client that records calls for assertions.
// Set the result and error fields before use.
type MockClient struct {
	mu    sync.Mutex
	calls []Call

	Token string
	UID   string

	IssueTokenErr    error
	CreateAccountErr error
	UpdateAccountErr error
	DeleteAccountErr error
}

// NewMockClient creates a MockClient that succeeds with fixed results.
func NewMockClient() *MockClient {
	return &MockClient{
		Token: "mock-token",
		UID:   "mock-uid",
	}
}

func (m *MockClient) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// IssueToken records the call.
func (m *MockClient) IssueToken(_ context.Context, userID string, claims map[string]any) (string, error) {
	m.record(Call{Method: "IssueToken", UserID: userID, Claims: claims})
	if m.IssueTokenErr != nil {
		return "", m.IssueTokenErr
	}
	return m.Token, nil
}

// CreateAccount records the call.
func (m *MockClient) CreateAccount(_ context.Context, email, password, displayName string) (string, error) {
	m.record(Call{Method: "CreateAccount", Email: email, Password: password, DisplayName: displayName})
	if m.CreateAccountErr != nil {
		return "", m.CreateAccountErr
	}
	return m.UID, nil
}

// UpdateAccount records the call.
func (m *MockClient) UpdateAccount(_ context.Context, userID string, update AccountUpdate) error {
	m.record(Call{Method: "UpdateAccount", UserID: userID, Update: update})
	return m.UpdateAccountErr
}

// DeleteAccount records the call.
func (m *MockClient) DeleteAccount(_ context.Context, userID string) error {
	m.record(Call{Method: "DeleteAccount", UserID: userID})
	return m.DeleteAccountErr
}
