package product

import (
	"context"
	"time"
)

// Product is a digital item in the catalog.
type Product struct {
	ID            int64      `json:"id"`
	NameAR        string     `json:"name_ar"`
	NameEN        *string    `json:"name_en"`
	DescriptionAR *string    `json:"description_ar"`
	DescriptionEN *string    `json:"description_en"`
	SKU           *string    `json:"sku"`
	Price         float64    `json:"price"`
	Currency      string     `json:"currency"`
	ImageURL      *string    `json:"image_url"`
	Categories    []string   `json:"categories"`
	ZidProductID  *string    `json:"zid_product_id"`
	IsActive      bool       `json:"is_active"`
	LastSyncedAt  *time.Time `json:"last_synced_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DefaultDenominations seeds the categories of new gift-card products.
func DefaultDenominations() []string {
	return []string{"2$", "5$", "10$", "25$", "50$", "100$"}
}

// Repository persists products.
type Repository interface {
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, p Product) error
	FindByID(ctx context.Context, id int64) (Product, bool, error)
	// List returns all products, newest first.
	List(ctx context.Context) ([]Product, error)
}
