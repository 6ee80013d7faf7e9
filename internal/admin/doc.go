// Package admin applies account mutations against the identity directory on
// behalf of verified callers.
//
// # Operations
//
//	grantElevatedToken {targetUserId}              -> {token}    any authenticated caller
//	createAccount      {email, displayName}        -> {uid}      admin
//	updateAccount      {targetUserId, displayName?, email?} -> {message}  admin
//	deleteAccount      {targetUserId}              -> {message}  admin
//
// "uid" is accepted wherever "targetUserId" is.
//
// # Phases
//
// Every operation runs the same three phases:
//
//  1. auth.Authorize on the caller.
//  2. Validate the request; empty strings count as missing.
//  3. Exactly one directory call, with the caller's context.
//
// Authorization and validation failures are returned as-is (Unauthenticated,
// PermissionDenied, InvalidArgument). A directory failure is logged with the
// operation name and target, and the caller receives codes.Internal with a
// message such as "failed to delete account". The directory's error text never
// reaches the caller.
//
// Successful mutations are appended to the audit log when one is configured.
// Audit failures are logged and ignored.
package admin
