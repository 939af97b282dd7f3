package httpapi

import (
	"context"

	"github.com/eightonethree/cafe-api/internal/platform/auth/token"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p token.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (token.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(token.Principal)
	return p, ok && p.MemberID != ""
}
