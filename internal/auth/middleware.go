package auth

import "net/http"

// Authenticate resolves the bearer token (when present) through the verifier
// and attaches the resulting identity to the request context. Requests
// without a valid token pass through unauthenticated; handlers that need an
// identity check FromContext themselves.
func Authenticate(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get("Authorization"))
			if token != "" {
				if id, ok := verifier.Verify(token); ok {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
