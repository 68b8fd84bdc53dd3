package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/port-experimental/dispatch-cli/internal/session"
)

const defaultTimeout = 30 * time.Second

// ErrInvalidLogin is returned when the server refuses the login credentials.
var ErrInvalidLogin = errors.New("invalid username or password")

// Client talks to the platform's authentication endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Credentials are what a user types to log in.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginResult is a successful login: the grant plus the profile metadata the
// server returns alongside it.
type LoginResult struct {
	Grant       session.Grant
	Role        string
	DisplayName string
}

// grantResponse is the JSON body of both the login and refresh endpoints.
type grantResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	ExpiresAt    string `json:"expiresAt"`
	Role         string `json:"role"`
	DisplayName  string `json:"displayName"`
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Login exchanges user credentials for a grant.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	resp, err := c.post(ctx, "/auth/login", creds)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidLogin
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login failed: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}

	gr, grant, err := decodeGrant(body)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if grant.RefreshToken == "" {
		return nil, fmt.Errorf("login failed: %w: missing refresh token", session.ErrMalformedGrant)
	}

	return &LoginResult{
		Grant:       grant,
		Role:        gr.Role,
		DisplayName: gr.DisplayName,
	}, nil
}

// Renew exchanges a refresh token for a new grant. It satisfies
// session.Renewer: a refused token wraps session.ErrCredentialRejected, a
// complete but unparseable response wraps session.ErrMalformedGrant, and
// network failures, timeouts (including ones while reading the body),
// throttling and server errors are *session.TransientError.
func (c *Client) Renew(ctx context.Context, refreshToken string) (session.Grant, error) {
	resp, err := c.post(ctx, "/auth/refresh", map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return session.Grant{}, &session.TransientError{Err: fmt.Errorf("failed to refresh token: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("token refresh failed: %s - %s", resp.Status, strings.TrimSpace(string(body)))
		if isTransientStatus(resp.StatusCode) {
			return session.Grant{}, &session.TransientError{Err: statusErr}
		}
		return session.Grant{}, fmt.Errorf("%w: %w", session.ErrCredentialRejected, statusErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.Grant{}, &session.TransientError{Err: fmt.Errorf("failed to read refresh response: %w", err)}
	}

	_, grant, err := decodeGrant(body)
	if err != nil {
		return session.Grant{}, fmt.Errorf("token refresh failed: %w", err)
	}
	return grant, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

func isTransientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= 500
}

// decodeGrant parses a fully read grant body. Expiry comes from expiresAt,
// then expiresIn, then the access token's exp claim when it is a JWT.
func decodeGrant(body []byte) (grantResponse, session.Grant, error) {
	var gr grantResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return gr, session.Grant{}, fmt.Errorf("%w: %w", session.ErrMalformedGrant, err)
	}
	if gr.AccessToken == "" {
		return gr, session.Grant{}, fmt.Errorf("%w: missing access token", session.ErrMalformedGrant)
	}

	grant := session.Grant{
		AccessToken:  gr.AccessToken,
		RefreshToken: gr.RefreshToken,
		ExpiresIn:    time.Duration(gr.ExpiresIn) * time.Second,
	}

	if gr.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, gr.ExpiresAt)
		if err != nil {
			return gr, session.Grant{}, fmt.Errorf("%w: invalid expiresAt %q", session.ErrMalformedGrant, gr.ExpiresAt)
		}
		grant.ExpiresAt = expiresAt
	}

	if grant.ExpiresAt.IsZero() && grant.ExpiresIn <= 0 {
		if exp, ok := tokenExpiry(gr.AccessToken); ok {
			grant.ExpiresAt = exp
		} else {
			return gr, session.Grant{}, fmt.Errorf("%w: no expiry information", session.ErrMalformedGrant)
		}
	}

	return gr, grant, nil
}

// tokenExpiry reads the exp claim of a JWT access token. The signature is not
// checked; the value only drives local renewal timing.
func tokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
