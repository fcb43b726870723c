package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/product"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/audit"
)

// ProductInput is the editable part of a product.
type ProductInput struct {
	NameAR        string   `json:"name_ar"`
	NameEN        *string  `json:"name_en"`
	DescriptionAR *string  `json:"description_ar"`
	DescriptionEN *string  `json:"description_en"`
	SKU           *string  `json:"sku"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency"`
	ImageURL      *string  `json:"image_url"`
	Categories    []string `json:"categories"`
	IsActive      *bool    `json:"is_active"`
}

// ProductPatch changes selected fields. Nil fields are left untouched.
type ProductPatch struct {
	NameAR        *string   `json:"name_ar"`
	NameEN        *string   `json:"name_en"`
	DescriptionAR *string   `json:"description_ar"`
	DescriptionEN *string   `json:"description_en"`
	SKU           *string   `json:"sku"`
	Price         *float64  `json:"price"`
	Currency      *string   `json:"currency"`
	ImageURL      *string   `json:"image_url"`
	Categories    *[]string `json:"categories"`
	IsActive      *bool     `json:"is_active"`
}

// CreateOptions controls side effects of Create.
type CreateOptions struct {
	AutoCategories bool
	PushToZid      bool
}

// ListProducts returns all products, newest first.
func (s *Service) ListProducts(ctx context.Context) ([]product.Product, error) {
	return s.products.List(ctx)
}

// GetProduct returns one product or a not-found error.
func (s *Service) GetProduct(ctx context.Context, id int64) (product.Product, error) {
	p, ok, err := s.products.FindByID(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if !ok {
		return product.Product{}, apperr.NotFound("product")
	}
	return p, nil
}

// CreateProduct stores a product and optionally publishes it. A failed
// publish is audited and does not fail the create.
func (s *Service) CreateProduct(ctx context.Context, actor user.User, in ProductInput, opts CreateOptions) (product.Product, error) {
	if !actor.IsAdmin() {
		return product.Product{}, apperr.ErrForbidden
	}
	if strings.TrimSpace(in.NameAR) == "" {
		return product.Product{}, apperr.Invalid("name_ar is required")
	}
	if in.Price < 0 {
		return product.Product{}, apperr.Invalid("price must not be negative")
	}

	p := product.Product{
		NameAR:        strings.TrimSpace(in.NameAR),
		NameEN:        in.NameEN,
		DescriptionAR: in.DescriptionAR,
		DescriptionEN: in.DescriptionEN,
		SKU:           in.SKU,
		Price:         in.Price,
		Currency:      in.Currency,
		ImageURL:      in.ImageURL,
		Categories:    in.Categories,
		IsActive:      true,
	}
	if p.Currency == "" {
		p.Currency = "SAR"
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if opts.AutoCategories && len(p.Categories) == 0 {
		p.Categories = product.DefaultDenominations()
	}

	id, err := s.products.Create(ctx, p)
	if err != nil {
		return product.Product{}, err
	}
	p, err = s.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	var remoteID *string
	if opts.PushToZid {
		zidID, err := s.store.CreateProduct(ctx, p)
		if err != nil {
			s.logger.Warn("failed to publish product", "product_id", id, "error", err)
			s.audit.Record(ctx, audit.Entry{
				Action:  "zid.create_product.error",
				UserID:  audit.UserID(actor.ID),
				Details: map[string]any{"product_id": id, "error": err.Error()},
			})
		} else {
			now := time.Now().UTC()
			p.ZidProductID = &zidID
			p.LastSyncedAt = &now
			if err := s.products.Update(ctx, p); err != nil {
				return product.Product{}, err
			}
			remoteID = &zidID
			s.audit.Record(ctx, audit.Entry{
				Action:  "zid.create_product",
				UserID:  audit.UserID(actor.ID),
				Details: map[string]any{"product_id": id, "zid_id": zidID},
			})
		}
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  "products.create",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"product_id": id, "zid_id": remoteID},
	})
	return p, nil
}

// UpdateProduct applies patch to product id.
func (s *Service) UpdateProduct(ctx context.Context, actor user.User, id int64, patch ProductPatch) (product.Product, error) {
	if !actor.IsAdmin() {
		return product.Product{}, apperr.ErrForbidden
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	if patch.NameAR != nil {
		if strings.TrimSpace(*patch.NameAR) == "" {
			return product.Product{}, apperr.Invalid("name_ar must not be empty")
		}
		p.NameAR = strings.TrimSpace(*patch.NameAR)
	}
	if patch.NameEN != nil {
		p.NameEN = patch.NameEN
	}
	if patch.DescriptionAR != nil {
		p.DescriptionAR = patch.DescriptionAR
	}
	if patch.DescriptionEN != nil {
		p.DescriptionEN = patch.DescriptionEN
	}
	if patch.SKU != nil {
		p.SKU = patch.SKU
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return product.Product{}, apperr.Invalid("price must not be negative")
		}
		p.Price = *patch.Price
	}
	if patch.Currency != nil {
		p.Currency = *patch.Currency
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	if patch.Categories != nil {
		p.Categories = *patch.Categories
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}

	if err := s.products.Update(ctx, p); err != nil {
		return product.Product{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:  "products.update",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"product_id": id},
	})
	return s.GetProduct(ctx, id)
}

// PushProduct re-syncs a published product with the storefront.
func (s *Service) PushProduct(ctx context.Context, actor user.User, id int64) (product.Product, error) {
	if !actor.IsAdmin() {
		return product.Product{}, apperr.ErrForbidden
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		s.audit.Record(ctx, audit.Entry{
			Action:  "zid.update_product.error",
			UserID:  audit.UserID(actor.ID),
			Details: map[string]any{"product_id": id, "error": err.Error()},
		})
		return product.Product{}, err
	}

	now := time.Now().UTC()
	p.LastSyncedAt = &now
	if err := s.products.Update(ctx, p); err != nil {
		return product.Product{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:  "products.push",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"product_id": id},
	})
	return p, nil
}
