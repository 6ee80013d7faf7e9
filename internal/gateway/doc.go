// Package gateway orchestrates the identity-gateway server components.
//
// # Overview
//
// The gateway owns the gRPC server, the HTTP server, the caller-token
// verifier, the identity directory backend, and the optional audit log.
// Both transports resolve the caller the same way and hand the request to
// admin.AccountService, which makes every authorization decision.
//
// # gRPC Service
//
// The identity.v1.AccountAdmin service has four unary methods whose
// requests and responses are google.protobuf.Struct values:
//
//	GrantElevatedToken {targetUserId} -> {token}
//	CreateAccount      {email, displayName} -> {uid}
//	UpdateAccount      {targetUserId, email?, displayName?} -> {message}
//	DeleteAccount      {targetUserId} -> {message}
//
// Callers authenticate with "authorization: Bearer <token>" metadata.
//
// # HTTP API
//
//   - POST /v1/{method} - Callable protocol, body {"data": {...}}
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (pings the directory)
//
// Successful calls answer {"result": {...}}. Failures answer
// {"error": {"status": "...", "message": "..."}} with status names and
// HTTP codes:
//
//	UNAUTHENTICATED   401
//	PERMISSION_DENIED 403
//	INVALID_ARGUMENT  400
//	UNIMPLEMENTED     404
//	INTERNAL          500
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	go gw.Run(ctx)
//
// Canceling ctx stops both servers and closes the directory and audit log.
// With tailscale enabled the gateway joins the tailnet and listens on
// :50051 (gRPC) and :80 (HTTP) instead of the configured addresses.
//
// # Key Files
//
//   - gateway.go: Gateway struct, initialization, Run/Shutdown, health
//   - grpc.go: AccountAdmin service implementation
//   - callable.go: HTTP callable transport
package gateway
