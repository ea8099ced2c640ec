// Package store defines the relational collaborators the auth core reads
// user, grant, and permission records from, along with an in-memory
// implementation for tests and a Postgres implementation for deployments.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("store: duplicate record")
)

// User is the relational identity record. Accounts are deactivated, never
// physically removed.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Grant is an explicit user-permission assignment, independent of role.
// GrantedBy records the actor for the audit trail.
type Grant struct {
	UserID     string
	Permission string
	GrantedBy  string
	CreatedAt  time.Time
}

// UserRepository is the relational lookup for identity records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// GrantRepository manages the user↔permission join table.
type GrantRepository interface {
	Permissions(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, g Grant) error
	Remove(ctx context.Context, userID, permission string) error
}
