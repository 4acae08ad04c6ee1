package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-topups/app/entity"
)

type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindTopUpProduct returns the catalog product used for top-up line items,
// or nil when none is configured.
func (r *ProductRepository) FindTopUpProduct(ctx context.Context) (*entity.Product, error) {
	query := `
		SELECT id, name, tax_name, tax_rate
		FROM products
		WHERE is_top_up = TRUE
		ORDER BY id ASC
		LIMIT 1
	`

	product := &entity.Product{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query).Scan(
		&product.ID,
		&product.Name,
		&product.TaxName,
		&product.TaxRate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}
