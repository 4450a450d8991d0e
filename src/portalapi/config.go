package portalapi

import (
	"log/slog"
	"net/http"
	"time"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

// AccessToken implements TokenSource
func (t StaticToken) AccessToken() string {
	return string(t)
}

// Config holds configuration for the portal API client
type Config struct {
	BaseURL    string        // Base URL of the API, e.g. http://127.0.0.1:8000/api/
	Tokens     TokenSource   // Source of the bearer token, may be nil
	Logger     *slog.Logger  // Logger for debugging
	Timeout    time.Duration // HTTP timeout
	RetryCount int           // Number of retries for idempotent requests
	RetryDelay time.Duration // Delay between retries
	HTTPClient *http.Client  // Optional custom HTTP client
}
