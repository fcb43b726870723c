package voucher

import (
	"context"
	"time"
)

// Voucher is one redeemable code belonging to a product.
type Voucher struct {
	ID         int64      `json:"id"`
	ProductID  int64      `json:"product_id"`
	Code       string     `json:"code"`
	IsRedeemed bool       `json:"is_redeemed"`
	RedeemedAt *time.Time `json:"redeemed_at"`
	Notes      *string    `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Repository persists vouchers.
type Repository interface {
	// Import stores all codes for productID in one transaction and returns
	// the created rows. A duplicate code aborts the whole import.
	Import(ctx context.Context, productID int64, codes []string, notes *string) ([]Voucher, error)
	// List returns vouchers, optionally restricted to one product.
	List(ctx context.Context, productID *int64) ([]Voucher, error)
}
