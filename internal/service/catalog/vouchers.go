package catalog

import (
	"context"
	"strings"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/model/voucher"
	"github.com/twocards/backoffice/internal/service/audit"
)

// ImportInput is a batch of codes for one product.
type ImportInput struct {
	ProductID     int64    `json:"product_id"`
	Codes         []string `json:"codes"`
	Notes         *string  `json:"notes"`
	AlsoPushToZid bool     `json:"also_push_to_zid"`
}

// ListVouchers returns vouchers, optionally for one product.
func (s *Service) ListVouchers(ctx context.Context, productID *int64) ([]voucher.Voucher, error) {
	return s.vouchers.List(ctx, productID)
}

// ImportVouchers stores every code or none. Blank codes are skipped;
// duplicates within the batch are rejected.
func (s *Service) ImportVouchers(ctx context.Context, actor user.User, in ImportInput) ([]voucher.Voucher, error) {
	if !actor.IsAdmin() {
		return nil, apperr.ErrForbidden
	}

	codes := make([]string, 0, len(in.Codes))
	seen := make(map[string]struct{}, len(in.Codes))
	for _, c := range in.Codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			return nil, apperr.Invalid("duplicate code in batch: " + c)
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	if len(codes) == 0 {
		return nil, apperr.Invalid("at least one code is required")
	}

	p, err := s.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	created, err := s.vouchers.Import(ctx, p.ID, codes, in.Notes)
	if err != nil {
		return nil, err
	}

	if in.AlsoPushToZid && p.ZidProductID != nil {
		if err := s.store.ImportVouchers(ctx, *p.ZidProductID, codes); err != nil {
			s.logger.Warn("failed to push vouchers", "product_id", p.ID, "error", err)
			s.audit.Record(ctx, audit.Entry{
				Action:  "zid.import_vouchers.error",
				UserID:  audit.UserID(actor.ID),
				Details: map[string]any{"product_id": p.ID, "error": err.Error()},
			})
		} else {
			s.audit.Record(ctx, audit.Entry{
				Action:  "zid.import_vouchers",
				UserID:  audit.UserID(actor.ID),
				Details: map[string]any{"product_id": p.ID, "count": len(codes)},
			})
		}
	}

	s.audit.Record(ctx, audit.Entry{
		Action:  "vouchers.import",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"product_id": p.ID, "count": len(created)},
	})
	return created, nil
}
