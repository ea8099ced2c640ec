package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/lexireport/authcore/password"
	"github.com/lexireport/authcore/session"
)

// Sentinel errors. Failures that carry metadata have a struct form below
// that unwraps to its sentinel, so errors.Is works either way.
var (
	// ErrInvalidToken marks a token that is malformed, expired, of the
	// wrong type, or missing required claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked marks a cryptographically valid token with no live
	// session record. Explicit revocation and natural expiry both land
	// here; callers cannot tell them apart.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInvalidCredentials is returned for unknown users and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when a looked-up user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned on registration with a taken email.
	ErrUserExists = errors.New("user already exists")
	// ErrInactiveUser marks an account that has been deactivated.
	ErrInactiveUser = errors.New("inactive user")
	// ErrAccountLocked marks an account inside its lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrPermissionDenied marks a caller lacking a required capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidPermission marks an identifier outside the catalog.
	ErrInvalidPermission = errors.New("invalid permission")
	// ErrProtectedPermission marks an attempt to remove or revoke the
	// baseline API-access capability.
	ErrProtectedPermission = errors.New("protected permission")
	// ErrInvalidRole marks a role name outside the configured set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrPasswordReuse marks a password present in the user's history.
	ErrPasswordReuse = errors.New("password was used recently")
)

// ErrStoreUnavailable re-exports the session store sentinel so callers can
// match it without importing the session package.
var ErrStoreUnavailable = session.ErrStoreUnavailable

// ErrPasswordPolicy re-exports the strength-policy sentinel.
var ErrPasswordPolicy = password.ErrWeakPassword

// AccountLockedError carries the remaining lockout duration, derived from
// the failure counter's TTL.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked for another %s", e.Remaining.Round(time.Second))
}

func (e *AccountLockedError) Unwrap() error { return ErrAccountLocked }

// PermissionDeniedError names the capability the caller was missing.
type PermissionDeniedError struct {
	Required string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s required", e.Required)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// InvalidPermissionError names the identifier rejected at the boundary.
type InvalidPermissionError struct {
	Name string
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("invalid permission: %q is not in the catalog", e.Name)
}

func (e *InvalidPermissionError) Unwrap() error { return ErrInvalidPermission }
