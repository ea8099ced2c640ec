package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authcore "github.com/lexireport/authcore"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal a guard injected, if any.
func PrincipalFromContext(ctx context.Context) (*authcore.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authcore.Principal)
	return p, ok
}

// Authenticate verifies the bearer token, requires an active account, and
// injects the principal into the request context.
func Authenticate(gateway *authcore.Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gateway == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			principal, err := gateway.Authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			if _, err := gateway.RequireActive(principal); err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require authenticates and then demands one permission. Authorization
// failures answer 403; everything before the check answers as Authenticate.
func Require(gateway *authcore.Gateway, permission string) func(http.Handler) http.Handler {
	authenticate := Authenticate(gateway)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())

			allowed, err := gateway.Authorize(r.Context(), principal, permission)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}))
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	var locked *authcore.AccountLockedError
	switch {
	case errors.As(err, &locked):
		http.Error(w, "locked", http.StatusLocked)
	case errors.Is(err, authcore.ErrPermissionDenied), errors.Is(err, authcore.ErrInactiveUser):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, authcore.ErrStoreUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
