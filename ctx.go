package auth

import (
	"context"
)

var payloadCtxKey = &contextKey{"payload"}

type contextKey struct {
	name string
}

// WithContext sets the resolved TokenPayload in the given context
func WithContext(r context.Context, payload *TokenPayload) context.Context {
	return context.WithValue(r, payloadCtxKey, payload)
}

// FromContext finds the payload from the context. A missing or nil
// payload means the request is anonymous.
func FromContext(ctx context.Context) (*TokenPayload, bool) {
	raw, ok := ctx.Value(payloadCtxKey).(*TokenPayload)
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}
