package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dejobratic/marketplace/internal/orders/domain"
)

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// Middleware rejects requests without a valid bearer token and stores the
// caller in the request context. A nil verifier rejects everything.
func Middleware(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || scheme != "Bearer" || token == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			if verifier == nil {
				writeUnauthorized(w, "authentication not configured")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}
			actor, err := claims.Actor()
			if err != nil || actor.ID == "" {
				writeUnauthorized(w, "token does not identify a marketplace user")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
