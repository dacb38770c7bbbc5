package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/medibook/libs/auth"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/medapi"
)

type ctxKey int

const ctxKeyUserID ctxKey = iota

// Authenticator reads the bearer token issued by the medical API. With a secret the
// token is verified here; without one it is only decoded and the API checks it.
type Authenticator struct {
	secret string
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: strings.TrimSpace(secret)}
}

// Middleware attaches the caller's identity and forwards the token to medapi calls.
// Requests without a token pass through anonymously.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.parse(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		ctx := medapi.WithToken(r.Context(), token)
		if id := claims.Identity(); id != "" {
			ctx = context.WithValue(ctx, ctxKeyUserID, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) parse(token string) (*auth.Claims, error) {
	if a.secret != "" {
		return auth.ParseAndVerifyHS256(token, a.secret)
	}
	return auth.ParseUnverified(token)
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}
