// ABOUTME: Unit tests for caller context functions
// ABOUTME: Tests Caller.IsAdmin and context propagation helpers

package auth

import (
	"context"
	"testing"
)

func TestCaller_IsAdmin(t *testing.T) {
	tests := []struct {
		name   string
		caller *Caller
		want   bool
	}{
		{
			name:   "admin claim true",
			caller: &Caller{UserID: "u1", Claims: map[string]any{"admin": true}},
			want:   true,
		},
		{
			name:   "admin claim false",
			caller: &Caller{UserID: "u1", Claims: map[string]any{"admin": false}},
			want:   false,
		},
		{
			name:   "admin claim as string",
			caller: &Caller{UserID: "u1", Claims: map[string]any{"admin": "true"}},
			want:   false,
		},
		{
			name:   "no claims",
			caller: &Caller{UserID: "u1"},
			want:   false,
		},
		{
			name:   "nil caller",
			caller: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.caller.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithCaller_FromContext(t *testing.T) {
	caller := &Caller{UserID: "u1", Claims: map[string]any{"admin": true}}

	ctx := WithCaller(context.Background(), caller)

	got := FromContext(ctx)
	if got != caller {
		t.Fatalf("FromContext() = %v, want %v", got, caller)
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), callerContextKey{}, "not-a-caller")

	if got := FromContext(ctx); got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
}
