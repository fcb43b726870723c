package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/voucher"
)

type voucherRepo struct {
	db *sql.DB
}

// NewVoucherRepo returns the voucher inventory repository.
func NewVoucherRepo(d *DB) voucher.Repository {
	return &voucherRepo{db: d.sql}
}

func (r *voucherRepo) Import(ctx context.Context, productID int64, codes []string, notes *string) ([]voucher.Voucher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin voucher import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vouchers (product_id, code, is_redeemed, notes, created_at) VALUES (?, ?, 0, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare voucher insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	out := make([]voucher.Voucher, 0, len(codes))
	for _, code := range codes {
		res, err := stmt.ExecContext(ctx, productID, code, nullString(notes), unixNano(now))
		if err != nil {
			if isConstraint(err) {
				return nil, fmt.Errorf("voucher code %q %w", code, apperr.ErrConflict)
			}
			return nil, fmt.Errorf("failed to insert voucher: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read voucher id: %w", err)
		}
		out = append(out, voucher.Voucher{ID: id, ProductID: productID, Code: code, Notes: notes, CreatedAt: now})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit voucher import: %w", err)
	}
	return out, nil
}

func (r *voucherRepo) List(ctx context.Context, productID *int64) ([]voucher.Voucher, error) {
	query := `SELECT id, product_id, code, is_redeemed, redeemed_at, notes, created_at FROM vouchers`
	var args []any
	if productID != nil {
		query += ` WHERE product_id = ?`
		args = append(args, *productID)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vouchers: %w", err)
	}
	defer rows.Close()

	var out []voucher.Voucher
	for rows.Next() {
		var (
			v          voucher.Voucher
			redeemedAt sql.NullInt64
			notes      sql.NullString
			createdAt  int64
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Code, &v.IsRedeemed, &redeemedAt, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		v.RedeemedAt = timePtr(redeemedAt)
		v.Notes = stringPtr(notes)
		v.CreatedAt = fromUnixNano(createdAt)
		out = append(out, v)
	}
	return out, rows.Err()
}
