package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mbelyaev/url-shortener/pkg/response"
)

// Identity carries the requester identity extracted from a bearer token.
// The token is issued by the external auth provider; this service trusts
// the identity it is given and performs no session management.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

type identityClaims struct {
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
	jwt.RegisteredClaims
}

type ctxKey int

const identityCtxKey ctxKey = 0

// identityFromContext returns the requester identity set by requireIdentity.
func identityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(Identity)
	return identity, ok
}

// requireIdentity verifies the Authorization bearer token and stores the
// requester identity in the request context. Requests without a valid token
// are rejected with 401.
func requireIdentity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UnauthorizedResponse)
				return
			}

			claims := new(identityClaims)

			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UnauthorizedResponse)
				return
			}

			identity := Identity{
				UserID:  claims.UserID,
				IsAdmin: claims.IsAdmin,
			}

			ctx := context.WithValue(r.Context(), identityCtxKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
