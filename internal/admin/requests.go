// ABOUTME: Request types for account operations and their payload decoding
// ABOUTME: Missing or mistyped fields are InvalidArgument; empty strings count as missing

package admin

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Payload field names.
const (
	fieldTargetUserID = "targetUserId"
	fieldUID          = "uid" // accepted alias of targetUserId
	fieldEmail        = "email"
	fieldDisplayName  = "displayName"
)

// GrantElevatedTokenRequest asks for an admin token for TargetUserID.
type GrantElevatedTokenRequest struct {
	TargetUserID string
}

// CreateAccountRequest describes a new account.
type CreateAccountRequest struct {
	Email       string
	DisplayName string
}

// UpdateAccountRequest changes the non-nil fields of an account.
type UpdateAccountRequest struct {
	TargetUserID string
	DisplayName  *string
	Email        *string
}

// DeleteAccountRequest removes TargetUserID.
type DeleteAccountRequest struct {
	TargetUserID string
}

// Validate checks required fields.
func (r GrantElevatedTokenRequest) Validate() error {
	return requireFields(field{fieldTargetUserID, r.TargetUserID})
}

// Validate checks required fields.
func (r CreateAccountRequest) Validate() error {
	return requireFields(field{fieldEmail, r.Email}, field{fieldDisplayName, r.DisplayName})
}

// Validate checks the target and that at least one field changes.
func (r UpdateAccountRequest) Validate() error {
	if err := requireFields(field{fieldTargetUserID, r.TargetUserID}); err != nil {
		return err
	}
	if len(r.fieldNames()) == 0 {
		return status.Error(codes.InvalidArgument, "no valid fields to update")
	}
	return nil
}

// fieldNames lists the present optional fields.
func (r UpdateAccountRequest) fieldNames() []string {
	var names []string
	if r.DisplayName != nil && *r.DisplayName != "" {
		names = append(names, fieldDisplayName)
	}
	if r.Email != nil && *r.Email != "" {
		names = append(names, fieldEmail)
	}
	return names
}

// Validate checks required fields.
func (r DeleteAccountRequest) Validate() error {
	return requireFields(field{fieldTargetUserID, r.TargetUserID})
}

type field struct {
	name  string
	value string
}

// requireFields returns InvalidArgument naming every empty field.
func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return status.Errorf(codes.InvalidArgument, "missing required parameter: %s", missing[0])
	default:
		return status.Errorf(codes.InvalidArgument, "missing required parameters: %s", strings.Join(missing, ", "))
	}
}

func decodeGrantElevatedToken(p map[string]any) (GrantElevatedTokenRequest, error) {
	target, err := targetUserID(p)
	return GrantElevatedTokenRequest{TargetUserID: target}, err
}

func decodeCreateAccount(p map[string]any) (CreateAccountRequest, error) {
	email, err := optionalString(p, fieldEmail)
	if err != nil {
		return CreateAccountRequest{}, err
	}
	name, err := optionalString(p, fieldDisplayName)
	if err != nil {
		return CreateAccountRequest{}, err
	}
	return CreateAccountRequest{Email: deref(email), DisplayName: deref(name)}, nil
}

func decodeUpdateAccount(p map[string]any) (UpdateAccountRequest, error) {
	target, err := targetUserID(p)
	if err != nil {
		return UpdateAccountRequest{}, err
	}
	name, err := optionalString(p, fieldDisplayName)
	if err != nil {
		return UpdateAccountRequest{}, err
	}
	email, err := optionalString(p, fieldEmail)
	if err != nil {
		return UpdateAccountRequest{}, err
	}
	return UpdateAccountRequest{
		TargetUserID: target,
		DisplayName:  nonEmpty(name),
		Email:        nonEmpty(email),
	}, nil
}

func decodeDeleteAccount(p map[string]any) (DeleteAccountRequest, error) {
	target, err := targetUserID(p)
	return DeleteAccountRequest{TargetUserID: target}, err
}

// targetUserID reads targetUserId, falling back to uid.
func targetUserID(p map[string]any) (string, error) {
	target, err := optionalString(p, fieldTargetUserID)
	if err != nil {
		return "", err
	}
	if target != nil && *target != "" {
		return *target, nil
	}
	uid, err := optionalString(p, fieldUID)
	if err != nil {
		return "", err
	}
	return deref(uid), nil
}

// optionalString returns nil when the key is absent or null.
func optionalString(p map[string]any, key string) (*string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "parameter %s must be a string", key)
	}
	return &s, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
