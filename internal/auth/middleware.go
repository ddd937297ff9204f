package auth

import (
	"context"
	"net/http"
	"strings"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/httpx"
)

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token and stores the
// verified identity on the request context.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || token == "" {
				httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "missing bearer token")
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		})
	}
}

func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(domain.Identity)
	return id, ok
}
