package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/avelichko/inkwell/internal/auth"
	"github.com/avelichko/inkwell/internal/common"
	"github.com/avelichko/inkwell/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// extractToken pulls the session token from the token cookie or, failing
// that, from an Authorization bearer header.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(common.TokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get(common.AuthHeaderName)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// withAuth validates the session token and injects the caller's identity
// into the request context. Any validation failure ends the request with a
// 401 response; it never propagates as a server fault.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		claims, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		identity := &models.Identity{UserID: claims.UserID, Username: claims.Username}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFromContext returns the authenticated identity stored by withAuth.
func identityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*models.Identity)
	return identity, ok
}
