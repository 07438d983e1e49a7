package server

import (
	"context"

	"github.com/phishguard/phishguard/internal/auth"
)

type contextKey int

const (
	ctxKeyAdmin contextKey = iota
	ctxKeyRequestID
)

func withAdmin(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKeyAdmin, claims)
}

// AdminFromContext returns the authenticated admin claims from the
// context. ok is false outside authenticated admin routes.
func AdminFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyAdmin).(auth.Claims)
	return claims, ok
}
