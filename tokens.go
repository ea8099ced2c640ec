package authcore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lexireport/authcore/jwt"
	"github.com/lexireport/authcore/session"
)

// TokenPair is the result of a successful login or refresh. Both tokens
// share one session ID, so revoking the session kills the pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// TokenService issues, verifies, and revokes tokens. Signature and expiry
// are checked locally; liveness is decided solely by the session store.
type TokenService struct {
	jwt      *jwt.Manager
	sessions *session.Store
	config   TokenConfig
	metrics  *Metrics
}

// NewTokenService wires the signing layer to the session store.
func NewTokenService(manager *jwt.Manager, sessions *session.Store, cfg TokenConfig, metrics *Metrics) *TokenService {
	return &TokenService{jwt: manager, sessions: sessions, config: cfg, metrics: metrics}
}

// IssueAccessToken signs an access token and registers its session record
// with a TTL equal to the token lifetime. An empty sessionID generates a
// fresh one.
func (t *TokenService) IssueAccessToken(ctx context.Context, userID, sessionID string) (string, string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	token, err := t.jwt.Sign(userID, jwt.TypeAccess, sessionID, t.config.AccessTTL)
	if err != nil {
		return "", "", err
	}
	if err := t.sessions.CreateSession(ctx, session.KindAccess, sessionID, userID, t.config.AccessTTL); err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// IssueRefreshToken is the refresh-kind twin of IssueAccessToken, with a
// TTL measured in days.
func (t *TokenService) IssueRefreshToken(ctx context.Context, userID, sessionID string) (string, string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	token, err := t.jwt.Sign(userID, jwt.TypeRefresh, sessionID, t.config.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	if err := t.sessions.CreateSession(ctx, session.KindRefresh, sessionID, userID, t.config.RefreshTTL); err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// IssuePair issues an access and refresh token sharing one session ID.
func (t *TokenService) IssuePair(ctx context.Context, userID string) (TokenPair, error) {
	sessionID := uuid.NewString()
	access, _, err := t.IssueAccessToken(ctx, userID, sessionID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := t.IssueRefreshToken(ctx, userID, sessionID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, SessionID: sessionID}, nil
}

// IssueEmailVerificationToken signs a stateless email-ownership proof. It
// is not tracked in the store and cannot be revoked before expiry.
func (t *TokenService) IssueEmailVerificationToken(email string) (string, error) {
	return t.jwt.Sign(email, jwt.TypeEmailVerification, "", t.config.EmailVerificationTTL)
}

// IssuePasswordResetToken signs a stateless password-reset proof.
func (t *TokenService) IssuePasswordResetToken(email string) (string, error) {
	return t.jwt.Sign(email, jwt.TypePasswordReset, "", t.config.PasswordResetTTL)
}

// VerifyToken checks signature and expiry first (cheap, local), then for
// the store-backed types confirms a live session record. A valid signature
// with no record fails with ErrTokenRevoked, whether the record was
// deleted or simply expired.
func (t *TokenService) VerifyToken(ctx context.Context, raw string) (*jwt.Claims, error) {
	claims, err := t.jwt.Parse(raw)
	if err != nil {
		t.metrics.tokenVerification(resultInvalid)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch claims.TokenType() {
	case jwt.TypeAccess, jwt.TypeRefresh:
		if claims.SessionID == "" {
			t.metrics.tokenVerification(resultInvalid)
			return nil, fmt.Errorf("%w: missing session_id claim", ErrInvalidToken)
		}
		kind := session.KindAccess
		if claims.TokenType() == jwt.TypeRefresh {
			kind = session.KindRefresh
		}
		live, err := t.sessions.SessionExists(ctx, kind, claims.SessionID)
		if err != nil {
			t.metrics.tokenVerification(resultError)
			return nil, err
		}
		if !live {
			t.metrics.tokenVerification(resultRevoked)
			return nil, ErrTokenRevoked
		}
	case jwt.TypeEmailVerification, jwt.TypePasswordReset:
		// Stateless types: signature and expiry are the whole story.
	default:
		t.metrics.tokenVerification(resultInvalid)
		return nil, fmt.Errorf("%w: unknown token type %q", ErrInvalidToken, claims.Type)
	}

	t.metrics.tokenVerification(resultSuccess)
	return claims, nil
}

// VerifyPasswordResetToken validates a reset token and returns its
// subject email.
func (t *TokenService) VerifyPasswordResetToken(ctx context.Context, raw string) (string, error) {
	claims, err := t.VerifyToken(ctx, raw)
	if err != nil {
		return "", err
	}
	if claims.TokenType() != jwt.TypePasswordReset {
		return "", fmt.Errorf("%w: not a password reset token", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// VerifyEmailVerificationToken validates a verification token and returns
// its subject email.
func (t *TokenService) VerifyEmailVerificationToken(ctx context.Context, raw string) (string, error) {
	claims, err := t.VerifyToken(ctx, raw)
	if err != nil {
		return "", err
	}
	if claims.TokenType() != jwt.TypeEmailVerification {
		return "", fmt.Errorf("%w: not an email verification token", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// RevokeToken deletes both session records for a session ID. Idempotent.
func (t *TokenService) RevokeToken(ctx context.Context, sessionID string) error {
	return t.sessions.DeleteSession(ctx, sessionID)
}

// RevokeAllForUser scans all live sessions and revokes the ones owned by
// userID. Returns the number of sessions revoked.
func (t *TokenService) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	ids, err := t.sessions.SessionsForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := t.sessions.DeleteSession(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
