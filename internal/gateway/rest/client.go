// Package rest is the JSON-over-HTTP plumbing shared by the integration
// clients. Non-2xx responses become *apperr.GatewayError.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
)

const maxErrorBody = 512

// Credentials resolves a named credential. The settings service satisfies it.
type Credentials interface {
	Lookup(ctx context.Context, key string) (string, bool)
}

// Client issues authenticated JSON requests to one provider.
type Client struct {
	Provider   string
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client with a request timeout.
func New(provider, baseURL string, timeout time.Duration) *Client {
	return &Client{
		Provider:   provider,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Do sends body (JSON encoded when non-nil) to path with a bearer token and
// decodes the response into out when non-nil.
func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", c.Provider, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", c.Provider, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apperr.Gateway(c.Provider, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Gateway(c.Provider, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperr.GatewayError{Provider: c.Provider, Status: resp.StatusCode, Body: truncate(string(payload))}
	}

	if out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return apperr.Gateway(c.Provider, fmt.Errorf("decoding response: %w", err))
		}
	}
	return nil
}

// Probe performs an authenticated GET and reports the outcome without
// decoding the body.
func (c *Client) Probe(ctx context.Context, url, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apperr.Gateway(c.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperr.GatewayError{Provider: c.Provider, Status: resp.StatusCode, Body: truncate(string(payload))}
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
