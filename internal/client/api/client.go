// Package api is the HTTP client for the authentication endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atinyakov/gophlogin/internal/models"
)

const (
	apiLogin    = "/api/login"
	apiRegister = "/api/register"
	apiMe       = "/api/me"
	apiLogout   = "/api/logout"
)

// ErrUnauthorized is returned by Me when the server rejects the token.
var ErrUnauthorized = errors.New("unauthorized")

// Client talks to the authentication server at BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a Client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// Login posts creds and returns the decoded envelope. The envelope is
// returned for any HTTP status; callers decide success by StatusCode.
// An error means no envelope could be obtained.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	resp, err := c.postJSON(ctx, apiLogin, creds)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	var out models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid response (HTTP %d): %w", resp.StatusCode, err)
	}
	if out.StatusCode == 0 {
		// servers that omit statusCode in the body still report it on the wire
		out.StatusCode = resp.StatusCode
	}
	return &out, nil
}

// Register creates an account for creds.
func (c *Client) Register(ctx context.Context, creds models.Credentials) error {
	resp, err := c.postJSON(ctx, apiRegister, creds)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s", strings.TrimSpace(string(data)))
	}
	return nil
}

// Me returns the profile of the token owner.
func (c *Client) Me(ctx context.Context, token string) (*models.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+apiMe, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("me failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server error: %s", strings.TrimSpace(string(data)))
	}

	var p models.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return &p, nil
}

// Logout revokes the session behind token. An already revoked token
// yields ErrUnauthorized.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+apiLogout, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s", strings.TrimSpace(string(data)))
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.HTTP.Do(req)
}
