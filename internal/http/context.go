package httpx

import (
	"context"

	"github.com/ivis-ai/rag-gateway/internal/domain/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

// SetIdentityInContext stores the verified caller identity in the request context.
func SetIdentityInContext(ctx context.Context, ident auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// IdentityFromContext returns the verified caller identity, if any.
// Handlers behind RequireBearer can rely on ok being true.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey).(auth.Identity)
	return ident, ok
}
