package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kmallmaperez/geocore/internal/domain"
	"github.com/kmallmaperez/geocore/internal/service"
)

type ctxKey int

const userKey ctxKey = iota

// WithUser stores the authenticated caller in ctx.
func WithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the caller stored by the auth middleware.
func UserFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey).(domain.User)
	return u, ok
}

// Authenticator checks the bearer token of protected routes.
type Authenticator struct {
	auth   service.AuthService
	logger *zap.Logger
}

func NewAuthenticator(auth service.AuthService, logger *zap.Logger) *Authenticator {
	return &Authenticator{auth: auth, logger: logger}
}

func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
			return
		}
		claims, err := a.auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeJSON(w, http.StatusUnauthorized, Result[any]{Code: ResultTokenExpired, Type: "error", Message: "token expired"})
				return
			}
			a.logger.Debug("rejected token", zap.String("ip_address", getClientIP(r)), zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, Fail("invalid token"))
			return
		}
		next(w, r.WithContext(WithUser(r.Context(), claims.User())))
	}
}

// claimsFrom is the /me payload.
func claimsFrom(u domain.User) map[string]any {
	return map[string]any{
		"id":     u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"role":   u.Role,
		"tables": u.Tables,
	}
}
