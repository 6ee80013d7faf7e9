// ABOUTME: Typed gRPC client for the AccountAdmin service
// ABOUTME: Attaches the bearer token to every call and unwraps Struct responses

package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/identity-gateway/internal/rpc"
)

// EnvToken names the environment variable holding the caller token.
const EnvToken = "IDENTITY_TOKEN"

// Client calls the AccountAdmin service as a single caller.
type Client struct {
	conn  *grpc.ClientConn
	rpc   rpc.AccountAdminClient
	token string
}

// Dial connects to the gateway at addr. The connection is established lazily on the first call.
func Dial(addr, token string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	c := New(conn, token)
	c.conn = conn
	return c, nil
}

// New wraps an existing connection. Close does not close cc.
func New(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{
		rpc:   rpc.NewAccountAdminClient(cc),
		token: token,
	}
}

// Close closes the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// GrantElevatedToken returns a custom token for targetUserID carrying the admin claim.
func (c *Client) GrantElevatedToken(ctx context.Context, targetUserID string) (string, error) {
	resp, err := c.call(ctx, c.rpc.GrantElevatedToken, map[string]any{"targetUserId": targetUserID})
	if err != nil {
		return "", fmt.Errorf("GrantElevatedToken: %w", err)
	}
	return stringField(resp, "token")
}

// CreateAccount creates an account and returns its uid.
func (c *Client) CreateAccount(ctx context.Context, email, displayName string) (string, error) {
	resp, err := c.call(ctx, c.rpc.CreateAccount, map[string]any{
		"email":       email,
		"displayName": displayName,
	})
	if err != nil {
		return "", fmt.Errorf("CreateAccount: %w", err)
	}
	return stringField(resp, "uid")
}

// UpdateAccount changes the non-nil fields and returns the gateway's confirmation message.
func (c *Client) UpdateAccount(ctx context.Context, targetUserID string, email, displayName *string) (string, error) {
	req := map[string]any{"targetUserId": targetUserID}
	if email != nil {
		req["email"] = *email
	}
	if displayName != nil {
		req["displayName"] = *displayName
	}

	resp, err := c.call(ctx, c.rpc.UpdateAccount, req)
	if err != nil {
		return "", fmt.Errorf("UpdateAccount: %w", err)
	}
	return stringField(resp, "message")
}

// DeleteAccount deletes the account and returns the gateway's confirmation message.
func (c *Client) DeleteAccount(ctx context.Context, targetUserID string) (string, error) {
	resp, err := c.call(ctx, c.rpc.DeleteAccount, map[string]any{"targetUserId": targetUserID})
	if err != nil {
		return "", fmt.Errorf("DeleteAccount: %w", err)
	}
	return stringField(resp, "message")
}

type unaryCall func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) call(ctx context.Context, fn unaryCall, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return fn(ctx, in)
}

func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("response missing %q", key)
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("response field %q is not a string", key)
	}
	return str.StringValue, nil
}

// ResolveToken returns the caller token from IDENTITY_TOKEN, falling back to
// $XDG_CONFIG_HOME/identity-gateway/token. It returns "" when neither is set.
func ResolveToken() string {
	if token := os.Getenv(EnvToken); token != "" {
		return token
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	data, err := os.ReadFile(filepath.Join(configDir, "identity-gateway", "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
