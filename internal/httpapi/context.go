package httpapi

import (
	"context"

	"github.com/dmitrymomot/filevault/internal/files"
)

type (
	requestIDKey struct{}
	userIDKey    struct{}
	principalKey struct{}
)

// RequestIDKey and UserIDKey are the context keys the logger extractors read.
var (
	RequestIDKey any = requestIDKey{}
	UserIDKey    any = userIDKey{}
)

// Principal is the authenticated subject of a request.
type Principal struct {
	Role   Role
	UserID int64
}

// Caller converts the principal into the identity the files service works with.
func (p Principal) Caller() files.Caller {
	return files.Caller{ID: p.UserID, Admin: p.Role.Allows(RoleAdmin)}
}

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// PrincipalFromContext returns the principal set by Authenticate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	return context.WithValue(ctx, userIDKey{}, p.UserID)
}
