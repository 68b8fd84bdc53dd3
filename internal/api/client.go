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
	"github.com/port-experimental/dispatch-cli/internal/session"
	"golang.org/x/oauth2"
)

const (
	maxRetries      = 3
	baseRetryDelay  = 100 * time.Millisecond
	maxRetryDelay   = 5 * time.Second
	retryableStatus = 429 // Too Many Requests
)

// DefaultAPIURL is used when no API URL is configured.
const DefaultAPIURL = "https://api.dispatch.example/v1"

// Client handles authenticated requests to the platform API. Every request
// goes through the session's guarded executor.
type Client struct {
	httpClient *http.Client
	session    *session.Manager
	apiURL     string
	timeout    time.Duration
}

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed: %s - %s", e.Status, e.Body)
}

// Is lets a 401 match session.ErrUnauthorized so the executor renews and
// retries.
func (e *StatusError) Is(target error) bool {
	return target == session.ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// NewClient creates a new API client that authenticates through sess.
func NewClient(sess *session.Manager, apiURL string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		session: sess,
		apiURL:  strings.TrimRight(apiURL, "/"),
		timeout: timeout,
	}
}

// request makes an authenticated request to the API.
func (c *Client) request(ctx context.Context, method, path string, data interface{}, params map[string]string) (*http.Response, error) {
	var payload []byte
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonData
	}

	return session.Execute(ctx, c.session, func(ctx context.Context, token string) (*http.Response, error) {
		return c.do(ctx, token, method, path, payload, params)
	})
}

// do sends one logical request with token, retrying throttled attempts with
// exponential backoff. Transport failures are retried only for idempotent
// methods.
func (c *Client) do(ctx context.Context, token, method, path string, payload []byte, params map[string]string) (*http.Response, error) {
	url := fmt.Sprintf("%s%s", c.apiURL, path)
	requestID := uuid.NewString()
	bearer := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}

	var (
		resp *http.Response
		err  error
	)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, url, reqBody)
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		bearer.SetAuthHeader(req)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		if params != nil {
			q := req.URL.Query()
			for k, v := range params {
				q.Set(k, v)
			}
			req.URL.RawQuery = q.Encode()
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if !idempotent(method) {
				return nil, fmt.Errorf("failed to execute request: %w", err)
			}
			if attempt == maxRetries {
				return nil, fmt.Errorf("failed to execute request after %d attempts: %w", maxRetries+1, err)
			}
			continue
		}

		if resp.StatusCode == retryableStatus && attempt < maxRetries {
			resp.Body.Close()
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &StatusError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       strings.TrimSpace(string(body)),
			}
		}

		return resp, nil
	}

	return resp, err
}

// idempotent reports whether a request that may have reached the server can
// be sent again. A throttled request never did, so 429 retries ignore this.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// decode reads a JSON response body into out and closes it.
func decode(resp *http.Response, out interface{}, what string) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
