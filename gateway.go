package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lexireport/authcore/jwt"
	"github.com/lexireport/authcore/password"
	"github.com/lexireport/authcore/session"
	"github.com/lexireport/authcore/store"
)

// Principal is an authenticated caller: the loaded user record plus the
// session the presented token belongs to.
type Principal struct {
	User      *store.User
	SessionID string
}

// Dependencies are the external collaborators the gateway is built on.
// The Redis client is constructed and owned by the caller (explicit
// lifecycle — there is no hidden global handle in this package).
type Dependencies struct {
	Redis   redis.UniversalClient
	Users   store.UserRepository
	Grants  store.GrantRepository
	Catalog *Catalog
}

// Gateway is the façade route handlers consume. Every protected operation
// evaluates Authenticate → RequireActive → Authorize, in that order.
type Gateway struct {
	users       store.UserRepository
	tokens      *TokenService
	throttle    *LoginThrottle
	resolver    *PermissionResolver
	credentials *Credentials
	audit       *AuditTrail
	metrics     *Metrics
	log         logrus.FieldLogger
}

// New wires the full auth core from one config and one set of
// collaborators.
func New(cfg Config, deps Dependencies) (*Gateway, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Redis == nil:
		return nil, errors.New("authcore: redis client is required")
	case deps.Users == nil:
		return nil, errors.New("authcore: user repository is required")
	case deps.Grants == nil:
		return nil, errors.New("authcore: grant repository is required")
	}
	if deps.Catalog == nil {
		deps.Catalog = DefaultCatalog()
	}

	manager, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(deps.Redis)
	metrics := NewMetrics(cfg.MetricsRegisterer)
	tokens := NewTokenService(manager, sessions, cfg.Token, metrics)
	throttle := NewLoginThrottle(sessions, cfg.Throttle)
	trail := NewAuditTrail(sessions, cfg.Audit.MaxEntries)
	resolver := NewPermissionResolver(deps.Catalog, sessions, deps.Grants, trail, metrics)
	trail.BindAuthorizer(resolver)
	credentials := NewCredentials(hasher, deps.Users, sessions, cfg.PasswordHistoryDepth)

	return &Gateway{
		users:       deps.Users,
		tokens:      tokens,
		throttle:    throttle,
		resolver:    resolver,
		credentials: credentials,
		audit:       trail,
		metrics:     metrics,
		log:         cfg.Logger,
	}, nil
}

// Tokens exposes the token service for boundary layers that revoke or
// issue tokens directly.
func (g *Gateway) Tokens() *TokenService { return g.tokens }

// Resolver exposes the permission-management operations.
func (g *Gateway) Resolver() *PermissionResolver { return g.resolver }

// Audit exposes the audit trail.
func (g *Gateway) Audit() *AuditTrail { return g.audit }

// Register creates a new, active account with the given role and assigns
// the role's default capabilities implicitly (no grant rows).
func (g *Gateway) Register(ctx context.Context, email, plaintext, role string) (*store.User, error) {
	if role == "" {
		role = RoleUser
	}
	if !g.resolver.catalog.KnownRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := password.ValidateStrength(plaintext); err != nil {
		return nil, err
	}

	hash, err := g.credentials.Hash(plaintext)
	if err != nil {
		return nil, err
	}
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := g.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	if err := g.credentials.RecordHistory(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	g.log.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("user registered")
	return user, nil
}

// Login authenticates credentials and issues a token pair. The lockout
// window is evaluated before the password is verified: a locked account
// answers identically for right and wrong passwords.
func (g *Gateway) Login(ctx context.Context, email, plaintext string) (TokenPair, error) {
	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.metrics.login(resultFailure)
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	allowed, err := g.throttle.CheckAllowed(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if !allowed {
		remaining, err := g.throttle.RemainingLockout(ctx, user.ID)
		if err != nil {
			return TokenPair{}, err
		}
		g.metrics.login(resultLocked)
		g.metrics.lockout()
		g.log.WithField("user_id", user.ID).Warn("login rejected by lockout window")
		return TokenPair{}, &AccountLockedError{Remaining: remaining}
	}

	if !g.credentials.Verify(user, plaintext) {
		if _, err := g.throttle.RecordFailure(ctx, user.ID); err != nil {
			return TokenPair{}, err
		}
		g.metrics.login(resultFailure)
		return TokenPair{}, ErrInvalidCredentials
	}

	if !user.Active {
		g.metrics.login(resultFailure)
		return TokenPair{}, ErrInactiveUser
	}

	if err := g.throttle.Reset(ctx, user.ID); err != nil {
		return TokenPair{}, err
	}

	pair, err := g.tokens.IssuePair(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}

	g.metrics.login(resultSuccess)
	g.log.WithFields(logrus.Fields{"user_id": user.ID, "session_id": pair.SessionID}).Info("login succeeded")
	return pair, nil
}

// Refresh exchanges a live refresh token for a new access token on the
// same session. The refresh token itself is returned unchanged.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := g.tokens.VerifyToken(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.TokenType() != jwt.TypeRefresh {
		return TokenPair{}, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}

	user, err := g.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if !user.Active {
		return TokenPair{}, ErrInactiveUser
	}

	access, _, err := g.tokens.IssueAccessToken(ctx, user.ID, claims.SessionID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refreshToken, SessionID: claims.SessionID}, nil
}

// Logout revokes the session behind a token pair. Idempotent.
func (g *Gateway) Logout(ctx context.Context, sessionID string) error {
	if err := g.tokens.RevokeToken(ctx, sessionID); err != nil {
		return err
	}
	g.log.WithField("session_id", sessionID).Info("session revoked")
	return nil
}

// Authenticate verifies an access token and loads its subject. A token
// whose subject no longer exists is invalid, not revoked.
func (g *Gateway) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	claims, err := g.tokens.VerifyToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType() != jwt.TypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}

	user, err := g.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &Principal{User: user, SessionID: claims.SessionID}, nil
}

// RequireActive rejects principals of deactivated accounts.
func (g *Gateway) RequireActive(p *Principal) (*Principal, error) {
	if p == nil || p.User == nil || !p.User.Active {
		return nil, ErrInactiveUser
	}
	return p, nil
}

// Authorize is the single predicate every protected operation evaluates
// before proceeding.
func (g *Gateway) Authorize(ctx context.Context, p *Principal, permission string) (bool, error) {
	return g.resolver.HasPermission(ctx, p.User, permission)
}

// QueryAudit reads the permission audit log on behalf of a principal.
func (g *Gateway) QueryAudit(ctx context.Context, p *Principal, filter AuditFilter) ([]AuditEntry, error) {
	return g.audit.Query(ctx, p.User, filter)
}

// RevokeUserSessions revokes every live session for a user and returns
// how many were revoked.
func (g *Gateway) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	n, err := g.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	g.log.WithFields(logrus.Fields{"user_id": userID, "sessions": n}).Info("all sessions revoked")
	return n, nil
}

// DeactivateUser flips the active flag off and revokes every session.
// This is the only way the baseline API-access capability is lost.
func (g *Gateway) DeactivateUser(ctx context.Context, actor *store.User, targetID string) error {
	allowed, err := g.resolver.HasPermission(ctx, actor, PermUsersManage)
	if err != nil {
		return err
	}
	if !allowed {
		return &PermissionDeniedError{Required: PermUsersManage}
	}
	if err := g.users.SetActive(ctx, targetID, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if _, err := g.tokens.RevokeAllForUser(ctx, targetID); err != nil {
		return err
	}
	g.log.WithFields(logrus.Fields{"user_id": targetID, "actor_id": actor.ID}).Warn("account deactivated")
	return nil
}

// ChangePassword rotates a password after re-verifying the current one,
// then revokes every session so stolen tokens die with the old password.
func (g *Gateway) ChangePassword(ctx context.Context, p *Principal, current, next string) error {
	if !g.credentials.Verify(p.User, current) {
		return ErrInvalidCredentials
	}
	if err := g.credentials.SetPassword(ctx, p.User, next); err != nil {
		return err
	}
	if _, err := g.tokens.RevokeAllForUser(ctx, p.User.ID); err != nil {
		return err
	}
	g.log.WithField("user_id", p.User.ID).Info("password changed")
	return nil
}

// RequestPasswordReset issues a stateless reset token for the account.
// Delivery is the boundary's concern; this core only mints the token.
func (g *Gateway) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return g.tokens.IssuePasswordResetToken(user.Email)
}

// ResetPassword consumes a reset token and sets the new password, then
// revokes every session for the account.
func (g *Gateway) ResetPassword(ctx context.Context, resetToken, next string) error {
	email, err := g.tokens.VerifyPasswordResetToken(ctx, resetToken)
	if err != nil {
		return err
	}
	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := g.credentials.SetPassword(ctx, user, next); err != nil {
		return err
	}
	if _, err := g.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return err
	}
	g.log.WithField("user_id", user.ID).Info("password reset")
	return nil
}
