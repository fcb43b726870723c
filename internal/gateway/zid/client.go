// Package zid pushes catalog data to the Zid commerce platform.
package zid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/gateway/rest"
	"github.com/twocards/backoffice/internal/model/product"
)

const (
	provider = "zid"
	tokenKey = "ZID_TOKEN"
)

// ErrNotConfigured is returned when no Zid token is available.
var ErrNotConfigured = errors.New("zid token is not configured")

// Client talks to the Zid REST API.
type Client struct {
	rest  *rest.Client
	creds rest.Credentials
}

// NewClient creates a client. The token is resolved from creds on every call
// so a credential saved in settings takes effect immediately.
func NewClient(baseURL string, creds rest.Credentials) *Client {
	return &Client{rest: rest.New(provider, baseURL, 30*time.Second), creds: creds}
}

type productPayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	SKU         *string         `json:"sku"`
	IsActive    bool            `json:"is_active"`
	Images      []string        `json:"images"`
	Metadata    productMetadata `json:"metadata"`
}

type productMetadata struct {
	NameEN        *string  `json:"name_en"`
	DescriptionEN *string  `json:"description_en"`
	Categories    []string `json:"categories"`
}

func toPayload(p product.Product) productPayload {
	out := productPayload{
		Name:     p.NameAR,
		Price:    p.Price,
		SKU:      p.SKU,
		IsActive: p.IsActive,
		Images:   []string{},
		Metadata: productMetadata{
			NameEN:        p.NameEN,
			DescriptionEN: p.DescriptionEN,
			Categories:    p.Categories,
		},
	}
	if p.DescriptionAR != nil {
		out.Description = *p.DescriptionAR
	}
	if p.ImageURL != nil {
		out.Images = []string{*p.ImageURL}
	}
	if out.Metadata.Categories == nil {
		out.Metadata.Categories = []string{}
	}
	return out
}

// The id comes back either at the top level or under "data", as a string
// or a number.
type createResponse struct {
	ID   any `json:"id"`
	Data struct {
		ID any `json:"id"`
	} `json:"data"`
}

func (r createResponse) productID() string {
	for _, v := range []any{r.Data.ID, r.ID} {
		switch id := v.(type) {
		case string:
			if id != "" {
				return id
			}
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64)
		}
	}
	return ""
}

func (c *Client) token(ctx context.Context) (string, error) {
	token, ok := c.creds.Lookup(ctx, tokenKey)
	if !ok {
		return "", apperr.Gateway(provider, ErrNotConfigured)
	}
	return token, nil
}

// CreateProduct publishes p and returns the remote product id.
func (c *Client) CreateProduct(ctx context.Context, p product.Product) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	var resp createResponse
	if err := c.rest.Do(ctx, http.MethodPost, "/products", token, toPayload(p), &resp); err != nil {
		return "", err
	}
	id := resp.productID()
	if id == "" {
		return "", apperr.Gateway(provider, errors.New("response carried no product id"))
	}
	return id, nil
}

// UpdateProduct re-syncs a product that was already published.
func (c *Client) UpdateProduct(ctx context.Context, p product.Product) error {
	if p.ZidProductID == nil || *p.ZidProductID == "" {
		return apperr.Invalid("product has not been pushed to zid yet")
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	return c.rest.Do(ctx, http.MethodPut, fmt.Sprintf("/products/%s", *p.ZidProductID), token, toPayload(p), nil)
}

// ImportVouchers uploads codes for a published product.
func (c *Client) ImportVouchers(ctx context.Context, zidProductID string, codes []string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{"product_id": zidProductID, "codes": codes}
	return c.rest.Do(ctx, http.MethodPost, "/vouchers/import", token, payload, nil)
}
