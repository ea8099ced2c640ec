package authcore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lexireport/authcore/session"
	"github.com/lexireport/authcore/store"
)

const revokedPermissionPrefix = "revoked_permission:"

func revokedKey(userID, permission string) string {
	return revokedPermissionPrefix + userID + ":" + permission
}

// PermissionResolver computes effective permission sets and carries out
// the permission-management operations. The effective set for a non-admin
// user is (role defaults ∪ explicit grants) minus any permission with a
// live temporary revocation; admins hold the whole catalog implicitly.
type PermissionResolver struct {
	catalog  *Catalog
	sessions *session.Store
	grants   store.GrantRepository
	audit    *AuditTrail
	metrics  *Metrics
}

// NewPermissionResolver wires the resolver. The audit trail may be nil
// for read-only deployments; management operations then skip trailing.
func NewPermissionResolver(catalog *Catalog, sessions *session.Store, grants store.GrantRepository, audit *AuditTrail, metrics *Metrics) *PermissionResolver {
	return &PermissionResolver{
		catalog:  catalog,
		sessions: sessions,
		grants:   grants,
		audit:    audit,
		metrics:  metrics,
	}
}

// EffectivePermissions materializes the user's full effective set. Store
// failures propagate so permission checks fail closed.
func (r *PermissionResolver) EffectivePermissions(ctx context.Context, user *store.User) (map[string]struct{}, error) {
	if user.Role == RoleAdmin {
		set := make(map[string]struct{}, len(r.catalog.ordered))
		for _, p := range r.catalog.Permissions() {
			set[p] = struct{}{}
		}
		return set, nil
	}

	set := make(map[string]struct{})
	for _, p := range r.catalog.RoleDefaults(user.Role) {
		set[p] = struct{}{}
	}

	granted, err := r.grants.Permissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range granted {
		if r.catalog.Has(p) {
			set[p] = struct{}{}
		}
	}

	// One scan reads every live revocation for the user.
	prefix := revokedPermissionPrefix + user.ID + ":"
	revoked, err := r.sessions.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, key := range revoked {
		delete(set, strings.TrimPrefix(key, prefix))
	}

	return set, nil
}

// HasPermission is the membership test every protected operation runs.
// Admins short-circuit without materializing the set.
func (r *PermissionResolver) HasPermission(ctx context.Context, user *store.User, permission string) (bool, error) {
	if user.Role == RoleAdmin {
		r.metrics.permissionCheck(resultAllowed)
		return r.catalog.Has(permission), nil
	}
	set, err := r.EffectivePermissions(ctx, user)
	if err != nil {
		r.metrics.permissionCheck(resultError)
		return false, err
	}
	_, ok := set[permission]
	if ok {
		r.metrics.permissionCheck(resultAllowed)
	} else {
		r.metrics.permissionCheck(resultDenied)
	}
	return ok, nil
}

// requireManager enforces the permission-management capability and the
// catalog boundary shared by every management operation. Nothing is
// written, and no audit entry appended, when any check fails.
func (r *PermissionResolver) requireManager(ctx context.Context, actor *store.User, permission string) error {
	allowed, err := r.HasPermission(ctx, actor, PermUsersManage)
	if err != nil {
		return err
	}
	if !allowed {
		return &PermissionDeniedError{Required: PermUsersManage}
	}
	if !r.catalog.Has(permission) {
		return &InvalidPermissionError{Name: permission}
	}
	return nil
}

// Grant assigns an explicit permission to the target and appends an
// audit entry.
func (r *PermissionResolver) Grant(ctx context.Context, actor, target *store.User, permission, reason string) error {
	if err := r.requireManager(ctx, actor, permission); err != nil {
		return err
	}
	err := r.grants.Add(ctx, store.Grant{
		UserID:     target.ID,
		Permission: permission,
		GrantedBy:  actor.ID,
	})
	if err != nil {
		return err
	}
	return r.trail(ctx, actor, target, ActionAssign, permission, reason)
}

// RemoveGrant deletes an explicit grant. The baseline API-access
// capability is protected: it can never be removed, only a full account
// deactivation takes it away.
func (r *PermissionResolver) RemoveGrant(ctx context.Context, actor, target *store.User, permission, reason string) error {
	if err := r.requireManager(ctx, actor, permission); err != nil {
		return err
	}
	if permission == PermAPIAccess {
		return ErrProtectedPermission
	}
	if err := r.grants.Remove(ctx, target.ID, permission); err != nil {
		return err
	}
	return r.trail(ctx, actor, target, ActionRemove, permission, reason)
}

// TemporarilyRevoke suppresses a permission for the given duration by
// writing an expiring store key. There is no restore operation: the
// permission returns by itself when the key's TTL elapses.
func (r *PermissionResolver) TemporarilyRevoke(ctx context.Context, actor, target *store.User, permission string, duration time.Duration, reason string) error {
	if err := r.requireManager(ctx, actor, permission); err != nil {
		return err
	}
	if permission == PermAPIAccess {
		return ErrProtectedPermission
	}
	if duration <= 0 {
		return errors.New("revocation duration must be positive")
	}
	if err := r.sessions.SetFlag(ctx, revokedKey(target.ID, permission), duration); err != nil {
		return err
	}
	return r.trail(ctx, actor, target, ActionTemporaryRevoke, permission, reason)
}

func (r *PermissionResolver) trail(ctx context.Context, actor, target *store.User, action AuditAction, permission, reason string) error {
	if r.audit == nil {
		return nil
	}
	return r.audit.Append(ctx, AuditEntry{
		ActorID:    actor.ID,
		TargetID:   target.ID,
		Action:     action,
		Permission: permission,
		Reason:     reason,
	})
}
