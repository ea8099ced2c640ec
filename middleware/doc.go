// Package middleware exposes HTTP middleware adapters that enforce
// authentication and permission checks on top of authcore.Gateway.
//
// # Guards
//
//   - [Authenticate] — verifies the bearer token and injects the principal.
//   - [Require] — Authenticate plus a single permission check.
//
// Each guard reads the Authorization header, calls the gateway, and injects
// the resolved principal into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into gateway calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Gateway.Authenticate and Gateway.Authorize.
package middleware
