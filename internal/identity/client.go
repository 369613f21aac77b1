package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the identity provider's admin REST surface.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates an identity client for the given admin endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// User fetches a user and its claims.
func (c *Client) User(ctx context.Context, uid string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, c.userURL(uid), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetClaims replaces the authorization claims attached to a user.
func (c *Client) SetClaims(ctx context.Context, uid string, claims map[string]any) error {
	body, err := json.Marshal(map[string]any{"claims": claims})
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}
	return c.do(ctx, http.MethodPut, c.userURL(uid)+"/claims", body, nil)
}

// DeleteUser removes a user from the provider.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, c.userURL(uid), nil, nil)
}

func (c *Client) userURL(uid string) string {
	return c.baseURL + "/v1/users/" + url.PathEscape(uid)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("identity request returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode identity response: %w", err)
		}
	}
	return nil
}
