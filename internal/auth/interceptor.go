// ABOUTME: gRPC interceptor resolving the caller from a bearer token in metadata
// ABOUTME: Absent credentials leave the caller unset; invalid credentials are rejected

package auth

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// logAuthFailure logs an authentication failure with structured context.
func logAuthFailure(logger *slog.Logger, ctx context.Context, reason string, attrs ...any) {
	if logger == nil {
		return
	}
	baseAttrs := []any{"reason", reason}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		baseAttrs = append(baseAttrs, "peer_addr", p.Addr.String())
	}
	baseAttrs = append(baseAttrs, attrs...)
	logger.Warn("auth failure", baseAttrs...)
}

// UnaryInterceptor returns a gRPC unary interceptor that attaches the verified Caller to the context.
// Requests without an authorization header proceed with no Caller, leaving the decision to Authorize.
func UnaryInterceptor(tokens TokenVerifier, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		caller, err := extractCaller(ctx, tokens, logger)
		if err != nil {
			return nil, err
		}
		if caller != nil {
			ctx = WithCaller(ctx, caller)
		}
		return handler(ctx, req)
	}
}

// extractCaller reads the authorization metadata and verifies it.
func extractCaller(ctx context.Context, tokens TokenVerifier, logger *slog.Logger) (*Caller, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, nil
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, nil
	}

	token, errMsg := extractBearerToken(authHeaders[0])
	if errMsg != "" {
		logAuthFailure(logger, ctx, "malformed_header", "detail", errMsg)
		return nil, status.Error(codes.Unauthenticated, errMsg)
	}

	caller, err := tokens.Verify(ctx, token)
	if err != nil {
		logAuthFailure(logger, ctx, "invalid_token", "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return caller, nil
}

// extractBearerToken extracts a bearer token from an authorization header value.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}
