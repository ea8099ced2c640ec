// Package jwt signs and verifies the core's tokens. Verification here is
// purely local (signature, expiry, issuer); whether a token is still live
// is decided by the session store, not by this package.
package jwt
