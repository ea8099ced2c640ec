package authcore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lexireport/authcore/session"
	"github.com/lexireport/authcore/store"
)

const auditLogKey = "permission_audit_log"

// AuditAction labels what a permission-management entry records.
type AuditAction string

const (
	// ActionAssign records an explicit permission grant.
	ActionAssign AuditAction = "assign"
	// ActionRemove records removal of an explicit grant.
	ActionRemove AuditAction = "remove"
	// ActionTemporaryRevoke records a time-boxed revocation.
	ActionTemporaryRevoke AuditAction = "temporary_revoke"
)

// AuditEntry is one permission-management event.
type AuditEntry struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	ActorID    string      `json:"actor_id"`
	TargetID   string      `json:"target_id"`
	Action     AuditAction `json:"action"`
	Permission string      `json:"permission"`
	Reason     string      `json:"reason,omitempty"`
}

// AuditFilter narrows a query. Zero values match everything.
type AuditFilter struct {
	Target string
	Start  time.Time
	End    time.Time
}

// permissionChecker is the slice of the resolver the trail needs for
// Query authorization.
type permissionChecker interface {
	HasPermission(ctx context.Context, user *store.User, permission string) (bool, error)
}

// AuditTrail is an append-only, capped log of permission-management
// actions, held as a JSON list in the shared store. Appends are O(1);
// the oldest entry is evicted once the cap is reached.
type AuditTrail struct {
	sessions *session.Store
	max      int64
	authz    permissionChecker
}

// NewAuditTrail builds a trail capped at max entries.
func NewAuditTrail(sessions *session.Store, max int64) *AuditTrail {
	return &AuditTrail{sessions: sessions, max: max}
}

// BindAuthorizer injects the permission checker used by Query. The trail
// and the resolver reference each other, so the checker is bound after
// both exist.
func (a *AuditTrail) BindAuthorizer(c permissionChecker) {
	a.authz = c
}

// Append pushes an entry to the front of the log and trims to the cap.
// ID and Timestamp are filled in when absent.
func (a *AuditTrail) Append(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return a.sessions.PushCapped(ctx, auditLogKey, payload, a.max)
}

// Query returns entries newest-first, filtered in memory; the list is
// bounded, so a full scan is acceptable. The caller must hold the
// audit-read capability.
func (a *AuditTrail) Query(ctx context.Context, caller *store.User, filter AuditFilter) ([]AuditEntry, error) {
	if a.authz == nil {
		return nil, &PermissionDeniedError{Required: PermAuditRead}
	}
	allowed, err := a.authz.HasPermission(ctx, caller, PermAuditRead)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &PermissionDeniedError{Required: PermAuditRead}
	}

	raw, err := a.sessions.ListRange(ctx, auditLogKey, 0, -1)
	if err != nil {
		return nil, err
	}

	var out []AuditEntry
	for _, item := range raw {
		var entry AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// A corrupt entry must not make the whole log unreadable.
			continue
		}
		if filter.Target != "" && entry.TargetID != filter.Target {
			continue
		}
		if !filter.Start.IsZero() && entry.Timestamp.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && entry.Timestamp.After(filter.End) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// Len reports the current number of entries.
func (a *AuditTrail) Len(ctx context.Context) (int64, error) {
	return a.sessions.ListLen(ctx, auditLogKey)
}
