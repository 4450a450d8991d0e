package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000/api/"
	defaultTimeout = 30 * time.Second
)

// Client is the chat portal REST API client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	validate   *validator.Validate
}

// NewClient creates a new portal API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "portal_client")

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		baseURL:    NormalizeBaseURL(config.BaseURL),
		validate:   validator.New(),
	}
}

// NormalizeBaseURL trims whitespace and makes sure the URL ends in exactly
// one slash. An empty URL yields the default.
func NormalizeBaseURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		u = defaultBaseURL
	}
	return strings.TrimRight(u, "/") + "/"
}

// BaseURL returns the normalized base URL, always ending in a slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes the JSON response into out.
// When authenticated is set, the bearer token from the configured
// TokenSource is attached if one is available.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, authenticated bool) error {
	logger := c.logger.With("method", method, "path", path)

	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := c.newRequest(ctx, method, path, body, authenticated)
	if err != nil {
		return err
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logger.Debug("received error response", "status_code", resp.StatusCode)
		return c.handleError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		logger.Debug("failed to decode response", "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, authenticated bool) (*http.Request, error) {
	url := c.baseURL + strings.TrimLeft(path, "/")

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authenticated && c.config.Tokens != nil {
		if token := c.config.Tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying read-only methods
// on network and server errors. Message submissions, creations, renames and
// deletes are never retried: a delete that failed with a 5xx may still have
// happened, and repeating it would report a spurious not found.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	attempts := 1
	if isRetryableMethod(req.Method) && c.config.RetryCount > 0 {
		attempts += c.config.RetryCount
	}

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body.Close()
	}

	logger := c.logger.With("method", req.Method, "url", req.URL.String())

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(c.config.RetryDelay * time.Duration(i)):
			}
		}

		reqCopy := req.Clone(req.Context())
		if bodyBytes != nil {
			reqCopy.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.httpClient.Do(reqCopy)
		if err != nil {
			lastErr = err
			logger.Debug("request attempt failed", "attempt", i+1, "error", err)
			continue
		}

		// Success or client error - return immediately
		if resp.StatusCode < 500 || i == attempts-1 {
			return resp, nil
		}

		// Server error - retry
		resp.Body.Close()
		lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		logger.Debug("server error, retrying", "attempt", i+1, "status_code", resp.StatusCode)
	}

	if attempts == 1 {
		return nil, fmt.Errorf("request failed: %w", lastErr)
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func isRetryableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}
	return parseAPIError(resp.StatusCode, resp.Header.Get("X-Request-ID"), body)
}

// validateRequest runs struct validation on a request body
func (c *Client) validateRequest(req interface{}) error {
	if err := c.validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			e := validationErrors[0]
			return &ValidationError{
				Field:   strings.ToLower(e.Field()),
				Message: fmt.Sprintf("failed on '%s'", e.Tag()),
				Value:   e.Value(),
			}
		}
		return err
	}
	return nil
}
