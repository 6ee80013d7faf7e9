// Package directory talks to the external identity directory that owns accounts.
//
// The gateway never stores accounts of record itself; it applies single
// mutations through the Client interface:
//
//	uid, err := dir.CreateAccount(ctx, "rep@example.com", initialPassword, "Course Rep")
//	err = dir.UpdateAccount(ctx, uid, directory.AccountUpdate{DisplayName: &name})
//	err = dir.DeleteAccount(ctx, uid)
//	token, err := dir.IssueToken(ctx, uid, map[string]any{"admin": true})
//
// Backends:
//
//   - SQLiteDirectory: embedded accounts table, bcrypt password hashes.
//   - KeycloakDirectory: Keycloak Admin REST API with OAuth2 admin credentials.
//   - MockClient: records calls for tests.
//
// Custom tokens are minted by TokenMinter as HS256 JWTs carrying "uid" and a
// nested "claims" object. When the minter shares its secret with the gateway's
// caller-token verifier, minted tokens authenticate callers directly.
//
// Errors wrap the sentinels ErrAccountNotFound, ErrEmailExists and ErrInvalidAccount.
package directory
