// Package whatsapp sends template messages through the WhatsApp Cloud API.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/gateway/rest"
)

const provider = "whatsapp"

var ErrNotConfigured = errors.New("whatsapp token or phone id is not configured")

// Template is one template send request.
type Template struct {
	To           string            `json:"to"`
	Name         string            `json:"template_name"`
	LanguageCode string            `json:"language_code"`
	Variables    map[string]string `json:"variables"`
}

// Client sends templates.
type Client struct {
	rest  *rest.Client
	creds rest.Credentials
}

// NewClient creates a client against the Graph API base URL.
func NewClient(baseURL string, creds rest.Credentials) *Client {
	return &Client{rest: rest.New(provider, baseURL, 30*time.Second), creds: creds}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// Send delivers t and returns the provider message id ("-" when absent).
func (c *Client) Send(ctx context.Context, t Template) (string, error) {
	if t.To == "" || t.Name == "" {
		return "", apperr.Invalid("recipient and template name are required")
	}
	token, okToken := c.creds.Lookup(ctx, "WA_TOKEN")
	phoneID, okPhone := c.creds.Lookup(ctx, "WA_PHONE_ID")
	if !okToken || !okPhone {
		return "", apperr.Gateway(provider, ErrNotConfigured)
	}
	if t.LanguageCode == "" {
		t.LanguageCode = "ar"
	}

	template := map[string]any{
		"name":     t.Name,
		"language": map[string]string{"code": t.LanguageCode},
	}
	if params := bodyParameters(t.Variables); len(params) > 0 {
		template["components"] = []map[string]any{{"type": "body", "parameters": params}}
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                t.To,
		"type":              "template",
		"template":          template,
	}

	var resp sendResponse
	if err := c.rest.Do(ctx, http.MethodPost, fmt.Sprintf("/%s/messages", phoneID), token, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Messages) == 0 || resp.Messages[0].ID == "" {
		return "-", nil
	}
	return resp.Messages[0].ID, nil
}

// Template variables are positional; map keys are sorted so {{1}}, {{2}}
// line up with "1", "2" or any consistently named keys.
func bodyParameters(vars map[string]string) []map[string]string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		params = append(params, map[string]string{"type": "text", "text": vars[k]})
	}
	return params
}
