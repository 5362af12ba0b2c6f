package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix is the prefix for all generated access tokens
	KeyPrefix = "crm_"
	// KeyLength is the length of the random part of the token (32 bytes = 256 bits)
	KeyLength = 32
	// BCryptCost is the cost factor for bcrypt hashing
	BCryptCost = 12
)

// GenerateToken generates a new random access token.
func GenerateToken() (string, error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// HashToken hashes an access token using bcrypt.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken verifies a token against a bcrypt hash.
func VerifyToken(token, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

// VerifyTokenConstantTime compares a token against a plain expected value in
// constant time. Used for the ADMIN_API_KEY environment variable.
func VerifyTokenConstantTime(got, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// ExtractBearerToken extracts the bearer token from an Authorization header.
func ExtractBearerToken(authHeader string) string {
	token := strings.TrimSpace(authHeader)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Verifier resolves an access token to the identity it was issued to.
type Verifier interface {
	Verify(token string) (Identity, bool)
}

// StaticVerifier holds bcrypt-hashed tokens with their identities. The
// identity provider that issues tokens lives outside this service; this
// verifier only consumes them. Hashes are non-deterministic, so verification
// scans all entries.
type StaticVerifier struct {
	mu      sync.RWMutex
	entries []tokenEntry
}

type tokenEntry struct {
	hash     string
	identity Identity
}

// NewStaticVerifier creates an empty verifier.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{}
}

// Add registers a token for an identity, storing only its bcrypt hash.
func (v *StaticVerifier) Add(token string, id Identity) error {
	hash, err := HashToken(token)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.entries = append(v.entries, tokenEntry{hash: hash, identity: id})
	v.mu.Unlock()
	return nil
}

// Verify resolves a token to its identity.
func (v *StaticVerifier) Verify(token string) (Identity, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, e := range v.entries {
		if VerifyToken(token, e.hash) {
			return e.identity, true
		}
	}
	return Identity{}, false
}
