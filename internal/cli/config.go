package cli

import "os"

// Defaults used when neither flags nor environment provide a value.
const (
	DefaultBaseURL = "http://localhost:8080"
)

// ResolveBaseURL picks the API base URL from the flag value or the
// CRM_BASE_URL environment variable.
func ResolveBaseURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CRM_BASE_URL"); v != "" {
		return v
	}
	return DefaultBaseURL
}

// ResolveAPIKey picks the API key from the flag value or the CRM_API_KEY
// environment variable.
func ResolveAPIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CRM_API_KEY")
}
