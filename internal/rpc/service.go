// ABOUTME: gRPC service definition for identity.v1.AccountAdmin over google.protobuf.Struct
// ABOUTME: Server registration and a typed client stub shared by the gateway and the admin CLI

package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "identity.v1.AccountAdmin"

// Full method names.
const (
	AccountAdmin_GrantElevatedToken_FullMethodName = "/" + ServiceName + "/GrantElevatedToken"
	AccountAdmin_CreateAccount_FullMethodName      = "/" + ServiceName + "/CreateAccount"
	AccountAdmin_UpdateAccount_FullMethodName      = "/" + ServiceName + "/UpdateAccount"
	AccountAdmin_DeleteAccount_FullMethodName      = "/" + ServiceName + "/DeleteAccount"
)

// AccountAdminServer is the server API for the AccountAdmin service.
// Requests and responses are JSON-shaped objects carried as structpb.Struct.
type AccountAdminServer interface {
	GrantElevatedToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAccountAdminServer registers srv on s.
func RegisterAccountAdminServer(s grpc.ServiceRegistrar, srv AccountAdminServer) {
	s.RegisterService(&AccountAdmin_ServiceDesc, srv)
}

// unaryHandler adapts one AccountAdminServer method to a grpc.MethodDesc handler.
func unaryHandler(fullMethod string, call func(AccountAdminServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccountAdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AccountAdminServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AccountAdmin_ServiceDesc is the grpc.ServiceDesc for the AccountAdmin service.
var AccountAdmin_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GrantElevatedToken",
			Handler:    unaryHandler(AccountAdmin_GrantElevatedToken_FullMethodName, AccountAdminServer.GrantElevatedToken),
		},
		{
			MethodName: "CreateAccount",
			Handler:    unaryHandler(AccountAdmin_CreateAccount_FullMethodName, AccountAdminServer.CreateAccount),
		},
		{
			MethodName: "UpdateAccount",
			Handler:    unaryHandler(AccountAdmin_UpdateAccount_FullMethodName, AccountAdminServer.UpdateAccount),
		},
		{
			MethodName: "DeleteAccount",
			Handler:    unaryHandler(AccountAdmin_DeleteAccount_FullMethodName, AccountAdminServer.DeleteAccount),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity/v1/account_admin.proto",
}

// AccountAdminClient is the client API for the AccountAdmin service.
type AccountAdminClient interface {
	GrantElevatedToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	CreateAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpdateAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type accountAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewAccountAdminClient creates a client stub on cc.
func NewAccountAdminClient(cc grpc.ClientConnInterface) AccountAdminClient {
	return &accountAdminClient{cc}
}

func (c *accountAdminClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountAdminClient) GrantElevatedToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AccountAdmin_GrantElevatedToken_FullMethodName, in, opts)
}

func (c *accountAdminClient) CreateAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AccountAdmin_CreateAccount_FullMethodName, in, opts)
}

func (c *accountAdminClient) UpdateAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AccountAdmin_UpdateAccount_FullMethodName, in, opts)
}

func (c *accountAdminClient) DeleteAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AccountAdmin_DeleteAccount_FullMethodName, in, opts)
}
