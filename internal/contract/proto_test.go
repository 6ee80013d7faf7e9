// ABOUTME: Contract tests for the gRPC and callable API surface to detect breaking changes.
// ABOUTME: Validates the AccountAdmin service descriptor and the callable method names.

package contract

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"

	"github.com/2389/identity-gateway/internal/admin"
	"github.com/2389/identity-gateway/internal/rpc"
)

// expectedServices defines the contract for our gRPC API surface.
// If a service or method is removed or renamed, these tests will fail,
// catching breaking changes before they reach production.
var expectedServices = map[string][]string{
	"identity.v1.AccountAdmin": {
		"GrantElevatedToken",
		"CreateAccount",
		"UpdateAccount",
		"DeleteAccount",
	},
}

// expectedCallableMethods are the names accepted on POST /v1/{method}.
var expectedCallableMethods = []string{
	"grantElevatedToken",
	"createAccount",
	"updateAccount",
	"deleteAccount",
}

// TestProtoSurface verifies that all expected gRPC services and methods exist.
func TestProtoSurface(t *testing.T) {
	serviceDescs := map[string]grpc.ServiceDesc{
		rpc.ServiceName: rpc.AccountAdmin_ServiceDesc,
	}

	for serviceName, expected := range expectedServices {
		t.Run(serviceName, func(t *testing.T) {
			desc, exists := serviceDescs[serviceName]
			if !assert.True(t, exists, "service %s should be registered", serviceName) {
				return
			}

			assert.Equal(t, serviceName, desc.ServiceName, "service name should match")
			assert.Empty(t, desc.Streams, "AccountAdmin is unary only")

			actualMethods := make(map[string]bool)
			for _, m := range desc.Methods {
				actualMethods[m.MethodName] = true
			}

			for _, method := range expected {
				fullName := fmt.Sprintf("/%s/%s", serviceName, method)
				assert.True(t, actualMethods[method],
					"method %s should exist in service %s", fullName, serviceName)
			}

			// Report any extra methods not in contract (informational, not failure)
			for method := range actualMethods {
				if !slices.Contains(expected, method) {
					t.Logf("INFO: extra method %s/%s not in contract (consider adding)", serviceName, method)
				}
			}
		})
	}
}

// TestFullMethodNames pins the wire paths clients dial.
func TestFullMethodNames(t *testing.T) {
	assert.Equal(t, "/identity.v1.AccountAdmin/GrantElevatedToken", rpc.AccountAdmin_GrantElevatedToken_FullMethodName)
	assert.Equal(t, "/identity.v1.AccountAdmin/CreateAccount", rpc.AccountAdmin_CreateAccount_FullMethodName)
	assert.Equal(t, "/identity.v1.AccountAdmin/UpdateAccount", rpc.AccountAdmin_UpdateAccount_FullMethodName)
	assert.Equal(t, "/identity.v1.AccountAdmin/DeleteAccount", rpc.AccountAdmin_DeleteAccount_FullMethodName)
	assert.Equal(t, "identity/v1/account_admin.proto", rpc.AccountAdmin_ServiceDesc.Metadata)
}

// TestCallableMethods verifies the callable method names accepted by the account service.
func TestCallableMethods(t *testing.T) {
	assert.ElementsMatch(t, expectedCallableMethods, admin.Methods)
}
