// Package config handles configuration loading for identity-gateway.
//
// # Configuration File
//
// The path comes from the IDENTITY_GATEWAY_CONFIG environment variable, else
// $XDG_CONFIG_HOME/identity-gateway/gateway.yaml (see DefaultPath). Files ending
// in .toml are parsed as TOML; everything else is YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${IDENTITY_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Example
//
//	server:
//	  grpc_addr: "0.0.0.0:50051"
//	  http_addr: "0.0.0.0:8080"
//
//	auth:
//	  jwt_secret: "${IDENTITY_JWT_SECRET}"
//	  # or verify realm tokens:
//	  # jwks_url: "https://sso.example.com/realms/ops/protocol/openid-connect/certs"
//	  # issuer: "https://sso.example.com/realms/ops"
//	  # admin_role: "gateway-admin"
//
//	directory:
//	  driver: "sqlite"            # or "keycloak"
//	  initial_password: "${IDENTITY_INITIAL_PASSWORD}"
//	  token_secret: "${IDENTITY_JWT_SECRET}"
//	  token_ttl: "1h"
//	  sqlite:
//	    path: "./data/accounts.db"
//	  keycloak:
//	    base_url: "https://sso.example.com"
//	    realm: "ops"
//	    client_secret: "${KEYCLOAK_CLIENT_SECRET}"
//
//	audit:
//	  path: "./data/audit.db"
//
//	logging:
//	  level: "info"
//	  format: "text"              # or "json"
//
// # Validation
//
// Validate reports the first problem found: missing server addresses (unless
// tailscale is enabled), no caller-token verifier, short secrets, a missing
// initial password, or incomplete directory driver settings.
package config
