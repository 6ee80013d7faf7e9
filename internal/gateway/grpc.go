// ABOUTME: AccountAdmin gRPC service implementation
// ABOUTME: Converts Struct payloads to maps and hands them to the account service with the verified caller

package gateway

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/identity-gateway/internal/admin"
	"github.com/2389/identity-gateway/internal/auth"
	"github.com/2389/identity-gateway/internal/rpc"
)

// accountAdminServer implements rpc.AccountAdminServer.
type accountAdminServer struct {
	accounts *admin.AccountService
}

var _ rpc.AccountAdminServer = (*accountAdminServer)(nil)

func newAccountAdminServer(accounts *admin.AccountService) *accountAdminServer {
	return &accountAdminServer{accounts: accounts}
}

func (s *accountAdminServer) GrantElevatedToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.invoke(ctx, admin.MethodGrantElevatedToken, req)
}

func (s *accountAdminServer) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.invoke(ctx, admin.MethodCreateAccount, req)
}

func (s *accountAdminServer) UpdateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.invoke(ctx, admin.MethodUpdateAccount, req)
}

func (s *accountAdminServer) DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.invoke(ctx, admin.MethodDeleteAccount, req)
}

// invoke runs method for the caller the auth interceptor attached to ctx.
func (s *accountAdminServer) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.accounts.Invoke(ctx, auth.FromContext(ctx), method, req.AsMap())
	if err != nil {
		return nil, err
	}

	out, err := structpb.NewStruct(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}
