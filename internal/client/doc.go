// Package client is the caller side of the AccountAdmin gRPC service.
//
// A Client carries one bearer token and exposes the four account
// operations with plain Go arguments:
//
//	c, err := client.Dial("localhost:50051", client.ResolveToken())
//	if err != nil { ... }
//	defer c.Close()
//
//	uid, err := c.CreateAccount(ctx, "ada@example.com", "Ada")
//
// Errors returned by the gateway wrap their gRPC status; status.Code
// recovers the code.
package client
