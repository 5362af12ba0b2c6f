package auth

import "context"

// Identity is the authenticated user attached to a request. Token issuance
// (the OAuth2/JWT dance) happens outside this service; by the time a request
// reaches here the identity is just data.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the request identity, if one was authenticated.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
