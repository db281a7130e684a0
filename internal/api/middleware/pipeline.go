// Package middleware holds the request pipeline stages. Protected routes run
// RequireAuth then RequireStore before the handler; each stage either
// enriches the context or short-circuits with a tagged response.Error.
package middleware

import (
	"context"
	"net/http"

	"github.com/hsm-gustavo/todo-go/internal/api/response"
	"github.com/hsm-gustavo/todo-go/internal/db"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	claimsContextKey contextKey = "claims"
	storeContextKey  contextKey = "store"
)

// TokenValidator returns (nil, nil) for an unauthenticated request and a
// non-nil error only when validation itself cannot run.
type TokenValidator interface {
	Validate(authHeader string) (*db.Claims, error)
}

func RequireAuth(v TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Validate(r.Header.Get("Authorization"))
			if err != nil {
				response.WriteError(w, r, response.Misconfigured(err))
				return
			}
			if claims == nil {
				response.WriteError(w, r, response.Unauthenticated())
				return
			}

			ctx := WithClaims(r.Context(), claims)
			log := zerolog.Ctx(ctx).With().Str("user_id", claims.Subject).Logger()
			ctx = log.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireStore(a db.Acquirer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, err := a.Acquire(r.Context())
			if err != nil {
				response.WriteError(w, r, response.Unavailable(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), store)))
		})
	}
}

func WithClaims(ctx context.Context, claims *db.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil.
func ClaimsFromContext(ctx context.Context) *db.Claims {
	c, _ := ctx.Value(claimsContextKey).(*db.Claims)
	return c
}

func WithStore(ctx context.Context, store *db.Store) context.Context {
	return context.WithValue(ctx, storeContextKey, store)
}

// StoreFromContext returns the store placed by RequireStore, or nil.
func StoreFromContext(ctx context.Context) *db.Store {
	s, _ := ctx.Value(storeContextKey).(*db.Store)
	return s
}
