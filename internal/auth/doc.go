// Package auth resolves and authorizes the caller of identity-gateway operations.
//
// # Caller Identity
//
// Transports attach a verified *Caller to the request context:
//
//	caller := auth.FromContext(ctx) // nil when the request carried no credential
//
// A Caller holds the token subject and its claims. Custom claims minted by the
// directory (a nested "claims" object) are lifted to the top level, so the
// admin claim of an elevated token is visible as Claims["admin"].
//
// # Token Verification
//
//   - JWTVerifier: HS256 tokens signed with auth.jwt_secret.
//   - JWKSVerifier: RS256 tokens from an OIDC realm, keys fetched from auth.jwks_url.
//     Holders of auth.admin_role get the admin claim.
//   - Verifiers: tries several verifiers in order.
//
// # Transports
//
//	UnaryInterceptor(verifier, logger)     // gRPC
//	HTTPCallerMiddleware(verifier, logger) // HTTP
//
// Both leave the caller unset when no credential is sent and reject malformed or
// unverifiable credentials with Unauthenticated.
//
// # Authorization
//
// Authorize is the single authorization decision:
//
//	err := auth.Authorize(caller, true)
//
// It returns codes.Unauthenticated for an absent caller and codes.PermissionDenied
// when admin is required but the admin claim is not boolean true. It performs no I/O.
package auth
