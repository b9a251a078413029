package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailyreport/pkg/domain"
)

const maxBodyBytes = 1 << 20

var (
	// ErrUnauthenticated is returned by Me when the backend has no session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUnexpectedResponse wraps a 2xx response whose body could not be decoded.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Client calls the backend auth endpoints on behalf of one visitor. The
// visitor's cookie jar carries the backend session.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a non-2xx auth response. Message is the response text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Is lets a 401 APIError match ErrUnauthenticated.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthenticated && e.Status == http.StatusUnauthorized
}

// NewClient constructs an auth client. jar may be nil in tests.
func NewClient(baseURL string, jar http.CookieJar, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
	}
}

// Me returns the current user, nil when the backend answers with no user.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user *domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login confirms credentials. The backend sets the session cookie; the
// response body is not used as the identity.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	_, err := c.doText(ctx, http.MethodPost, "/api/auth/login", payload)
	return err
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doText(ctx, http.MethodPost, "/api/auth/logout", nil)
	return err
}

// Register creates an account and returns the backend's confirmation text.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (string, error) {
	return c.doText(ctx, http.MethodPost, "/api/auth/register", reg)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.doText(ctx, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email})
}

// VerifyResetToken returns nil when the token is valid.
func (c *Client) VerifyResetToken(ctx context.Context, token string) error {
	path := "/api/auth/verify-reset-token?token=" + url.QueryEscape(token)
	_, err := c.doText(ctx, http.MethodGet, path, nil)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	payload := map[string]string{"token": token, "newPassword": newPassword}
	return c.doText(ctx, http.MethodPost, "/api/auth/reset-password", payload)
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnexpectedResponse, path, err)
	}
	return nil
}

// doText returns the response body verbatim. Non-2xx bodies become APIError messages.
func (c *Client) doText(ctx context.Context, method, path string, payload any) (string, error) {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", newAPIError(resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func newAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
