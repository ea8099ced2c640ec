package authcore

import (
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/lexireport/authcore/jwt"
	"github.com/lexireport/authcore/password"
)

// TokenConfig sets the lifetimes for each token type. Session TTLs in the
// store always equal the matching token lifetime.
type TokenConfig struct {
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
}

// ThrottleConfig bounds failed login attempts per user inside a rolling
// window.
type ThrottleConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// AuditConfig caps the permission audit log; the oldest entry is evicted
// once the cap is reached.
type AuditConfig struct {
	MaxEntries int64
}

// Config is the complete configuration surface. Build it once, pass it to
// New, and treat it as immutable afterwards.
type Config struct {
	JWT      jwt.Config
	Token    TokenConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Password password.Config

	// PasswordHistoryDepth is how many previous hashes a new password is
	// checked against. 0 uses the default of 5.
	PasswordHistoryDepth int64

	// Logger receives structured auth events. Defaults to a discard
	// logger so library consumers opt in explicitly.
	Logger logrus.FieldLogger

	// MetricsRegisterer receives the prometheus collectors. Nil disables
	// metric registration (collectors still count, nothing exports them).
	MetricsRegisterer prometheus.Registerer
}

// DefaultConfig returns production-leaning defaults; signing material must
// still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: jwt.Config{
			SigningMethod: jwt.MethodHS256,
			Issuer:        "authcore",
			Leeway:        5 * time.Second,
		},
		Token: TokenConfig{
			AccessTTL:            15 * time.Minute,
			RefreshTTL:           7 * 24 * time.Hour,
			EmailVerificationTTL: 24 * time.Hour,
			PasswordResetTTL:     48 * time.Hour,
		},
		Throttle: ThrottleConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Audit: AuditConfig{
			MaxEntries: 1000,
		},
		Password:             password.DefaultConfig(),
		PasswordHistoryDepth: 5,
	}
}

func (c *Config) normalize() {
	if c.PasswordHistoryDepth <= 0 {
		c.PasswordHistoryDepth = 5
	}
	if c.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		c.Logger = discard
	}
}

func (c *Config) validate() error {
	switch {
	case c.Token.AccessTTL <= 0:
		return errors.New("config: access token ttl must be positive")
	case c.Token.RefreshTTL <= 0:
		return errors.New("config: refresh token ttl must be positive")
	case c.Token.EmailVerificationTTL <= 0:
		return errors.New("config: email verification ttl must be positive")
	case c.Token.PasswordResetTTL <= 0:
		return errors.New("config: password reset ttl must be positive")
	case c.Throttle.MaxAttempts <= 0:
		return errors.New("config: throttle max attempts must be positive")
	case c.Throttle.Window <= 0:
		return errors.New("config: throttle window must be positive")
	case c.Audit.MaxEntries <= 0:
		return errors.New("config: audit cap must be positive")
	}
	return nil
}
