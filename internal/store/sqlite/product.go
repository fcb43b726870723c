package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/model/product"
)

type productRepo struct {
	db *sql.DB
}

// NewProductRepo returns the product catalog repository.
func NewProductRepo(d *DB) product.Repository {
	return &productRepo{db: d.sql}
}

const productColumns = `id, name_ar, name_en, description_ar, description_en, sku, price, currency,
	image_url, categories, zid_product_id, is_active, last_synced_at, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, p product.Product) (int64, error) {
	categories, err := encodeCategories(p.Categories)
	if err != nil {
		return 0, err
	}
	now := unixNano(time.Now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (name_ar, name_en, description_ar, description_en, sku, price, currency,
			image_url, categories, zid_product_id, is_active, last_synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.NameAR, nullString(p.NameEN), nullString(p.DescriptionAR), nullString(p.DescriptionEN), nullString(p.SKU),
		p.Price, p.Currency, nullString(p.ImageURL), categories, nullString(p.ZidProductID), p.IsActive,
		nullTime(p.LastSyncedAt), now, now)
	if err != nil {
		if isConstraint(err) {
			return 0, fmt.Errorf("product sku %w", apperr.ErrConflict)
		}
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return res.LastInsertId()
}

func (r *productRepo) Update(ctx context.Context, p product.Product) error {
	categories, err := encodeCategories(p.Categories)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET name_ar = ?, name_en = ?, description_ar = ?, description_en = ?, sku = ?,
			price = ?, currency = ?, image_url = ?, categories = ?, zid_product_id = ?, is_active = ?,
			last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, p.NameAR, nullString(p.NameEN), nullString(p.DescriptionAR), nullString(p.DescriptionEN), nullString(p.SKU),
		p.Price, p.Currency, nullString(p.ImageURL), categories, nullString(p.ZidProductID), p.IsActive,
		nullTime(p.LastSyncedAt), unixNano(time.Now()), p.ID)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("product sku %w", apperr.ErrConflict)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("product")
	}
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (product.Product, bool, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return product.Product{}, false, nil
	}
	if err != nil {
		return product.Product{}, false, err
	}
	return p, true, nil
}

func (r *productRepo) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(s scanner) (product.Product, error) {
	var (
		p                                     product.Product
		nameEN, descAR, descEN, sku, imageURL sql.NullString
		categories, zidID                     sql.NullString
		lastSynced                            sql.NullInt64
		createdAt, updatedAt                  int64
	)
	err := s.Scan(&p.ID, &p.NameAR, &nameEN, &descAR, &descEN, &sku, &p.Price, &p.Currency,
		&imageURL, &categories, &zidID, &p.IsActive, &lastSynced, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Product{}, err
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("failed to scan product: %w", err)
	}

	p.NameEN = stringPtr(nameEN)
	p.DescriptionAR = stringPtr(descAR)
	p.DescriptionEN = stringPtr(descEN)
	p.SKU = stringPtr(sku)
	p.ImageURL = stringPtr(imageURL)
	p.ZidProductID = stringPtr(zidID)
	p.LastSyncedAt = timePtr(lastSynced)
	p.CreatedAt = fromUnixNano(createdAt)
	p.UpdatedAt = fromUnixNano(updatedAt)
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &p.Categories); err != nil {
			return product.Product{}, fmt.Errorf("failed to decode categories of product %d: %w", p.ID, err)
		}
	}
	return p, nil
}

func encodeCategories(categories []string) (sql.NullString, error) {
	if categories == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode categories: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
