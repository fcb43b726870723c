// Package catalog manages products and their voucher inventory, and keeps
// them in sync with the storefront.
package catalog

import (
	"context"
	"log/slog"

	"github.com/twocards/backoffice/internal/model/product"
	"github.com/twocards/backoffice/internal/model/voucher"
	"github.com/twocards/backoffice/internal/service/audit"
)

// Storefront is the remote commerce platform.
type Storefront interface {
	CreateProduct(ctx context.Context, p product.Product) (string, error)
	UpdateProduct(ctx context.Context, p product.Product) error
	ImportVouchers(ctx context.Context, remoteProductID string, codes []string) error
}

// Service implements the product and voucher operations.
type Service struct {
	products product.Repository
	vouchers voucher.Repository
	store    Storefront
	audit    audit.Sink
	logger   *slog.Logger
}

// NewService wires the catalog.
func NewService(products product.Repository, vouchers voucher.Repository, store Storefront, sink audit.Sink, logger *slog.Logger) *Service {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{products: products, vouchers: vouchers, store: store, audit: sink, logger: logger}
}
