package usecase

import (
	"context"
	"strings"
)

type accessTokenKey struct{}

// WithAccessToken attaches the caller's bearer token so backend calls made on
// its behalf carry the same credentials.
func WithAccessToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
