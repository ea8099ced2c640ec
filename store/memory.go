package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process implementation of both repositories, used by
// tests and the demo binary. Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]*User
	byMail map[string]string
	grants map[string]map[string]Grant // userID -> permission -> grant
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*User),
		byMail: make(map[string]string),
		grants: make(map[string]map[string]Grant),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Memory) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byMail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := m.byMail[normalizeEmail(u.Email)]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	cp := *u
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.users[u.ID] = &cp
	m.byMail[normalizeEmail(u.Email)] = u.ID
	return nil
}

func (m *Memory) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) Permissions(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var perms []string
	for perm := range m.grants[userID] {
		perms = append(perms, perm)
	}
	return perms, nil
}

func (m *Memory) Add(_ context.Context, g Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[g.UserID]; !ok {
		return ErrNotFound
	}
	if m.grants[g.UserID] == nil {
		m.grants[g.UserID] = make(map[string]Grant)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	m.grants[g.UserID][g.Permission] = g
	return nil
}

func (m *Memory) Remove(_ context.Context, userID, permission string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants[userID], permission)
	return nil
}

var (
	_ UserRepository  = (*Memory)(nil)
	_ GrantRepository = (*Memory)(nil)
)
