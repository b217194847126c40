// internal/app/system/auth/principal.go
package auth

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal is the resolved caller. It is read from the user record on every
// request, so role and status changes apply immediately.
type Principal struct {
	ID     primitive.ObjectID
	Name   string
	Email  string
	Role   string
	Status string
}

type ctxKey string

const principalKey ctxKey = "principal"

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal stored in ctx.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// CurrentUser returns the request's principal and a found flag.
func CurrentUser(r *http.Request) (*Principal, bool) {
	return FromContext(r.Context())
}

// WithTestUser injects p into the request context, bypassing token checks.
// Only tests should call this.
func WithTestUser(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(WithPrincipal(r.Context(), p))
}
