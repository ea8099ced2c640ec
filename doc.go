// Package authcore provides a session-backed authentication and
// authorization core: JWT access and refresh tokens made revocable through
// a Redis session registry, role-plus-grant permission resolution with
// temporary revocations, login throttling, and a capped audit trail.
//
// The package is designed for concurrent server workloads: [Gateway]
// methods are safe to call from multiple goroutines after construction
// through [New].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Gateway], [Config],
// [Catalog], the sub-services ([TokenService], [PermissionResolver],
// [AuditTrail], [LoginThrottle], [Credentials]), and value types
// ([Principal], [TokenPair], [AuditEntry]). Key encoding and Redis access
// live in the session sub-package; user persistence behind the store
// interfaces.
//
// # Revocation contract
//
// A signed token proves nothing on its own: access and refresh tokens are
// live only while their session key exists in Redis. Deleting the session
// key is the sole revocation mechanism, and expiry is enforced by Redis
// TTLs rather than application timers. Stateless token types
// (email verification, password reset) skip the registry and live exactly
// as long as their signature.
//
// # Fail-closed contract
//
// Permission checks and audit reads propagate store errors instead of
// guessing: an unreachable Redis answers ErrStoreUnavailable, never a
// silent allow.
package authcore
