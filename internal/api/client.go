// Package api implements the HTTP client for the campus services backend.
//
// All request paths are joined as baseURL + "/users/..." so the configured
// base URL must not carry a trailing slash. Every call takes a context and
// honors its deadline on top of the client-wide timeout.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GIDEON-BOADU/ucsp-cli/pkg/logger"
)

// defaultHTTPTimeout is the per-request timeout used when the caller does
// not supply one.
const defaultHTTPTimeout = 15 * time.Second

// maxErrorExcerpt caps how much of an error response body is echoed into
// error messages and logs.
const maxErrorExcerpt = 200

// TokenFunc supplies the current access token for authenticated requests.
// It reports false when no session is active, in which case the request is
// sent without an Authorization header.
type TokenFunc func() (string, bool)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
}

// New creates a client for the API rooted at baseURL. A zero timeout falls
// back to the package default. token may be nil for clients that only issue
// unauthenticated requests.
func New(baseURL string, timeout time.Duration, token TokenFunc) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
	}
}

// BaseURL returns the API root this client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token, ok := c.token(); ok {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.Tracef("%s %s: status=%d body=%s", method, path, resp.StatusCode, excerpt(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, excerpt(respBody))
	}
	return respBody, nil
}

// excerpt trims a response body down to something safe to embed in an error
// message.
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorExcerpt {
		return s[:maxErrorExcerpt] + "..."
	}
	return s
}
