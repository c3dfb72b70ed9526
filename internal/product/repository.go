package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/backoffice/internal/paging"
	"github.com/abduss/backoffice/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const repoTimeout = 5 * time.Second

const columns = `id, organization_id, sku, name, description, unit, unit_price, image_url, created_at, updated_at`

// Repository persists products.
type Repository struct {
	db storage.DB
}

// NewRepository builds a product repository.
func NewRepository(db storage.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of the organization's products, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	filter := `WHERE organization_id = $1 AND ($2 = '' OR name ILIKE $2 OR sku ILIKE $2)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products `+filter+`;`, orgID, p.Pattern()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM products `+filter+`
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4;`, orgID, p.Pattern(), p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var pr Product
		if err := scanProduct(rows, &pr); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return products, total, nil
}

// Get fetches a product scoped to the organization.
func (r *Repository) Get(ctx context.Context, orgID, id uuid.UUID) (Product, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var pr Product
	err := scanProduct(r.db.QueryRow(ctx, `SELECT `+columns+` FROM products WHERE id = $1 AND organization_id = $2;`, id, orgID), &pr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return pr, nil
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, pr Product) (Product, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO products (id, organization_id, sku, name, description, unit, unit_price, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + columns + `;`

	var stored Product
	err := scanProduct(r.db.QueryRow(ctx, query,
		pr.ID, pr.OrganizationID, pr.SKU, pr.Name, pr.Description, pr.Unit, pr.UnitPrice, pr.ImageURL,
	), &stored)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return Product{}, ErrDuplicate
		}
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return stored, nil
}

// Update replaces the writable fields and returns the stored row together
// with the image reference it held before the update.
func (r *Repository) Update(ctx context.Context, pr Product) (Product, *string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var (
		stored   Product
		previous *string
	)
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT image_url FROM products WHERE id = $1 AND organization_id = $2 FOR UPDATE;`,
			pr.ID, pr.OrganizationID).Scan(&previous)
		if err != nil {
			return err
		}
		query := `
UPDATE products
SET sku = $3, name = $4, description = $5, unit = $6, unit_price = $7, image_url = $8, updated_at = NOW()
WHERE id = $1 AND organization_id = $2
RETURNING ` + columns + `;`
		return scanProduct(tx.QueryRow(ctx, query,
			pr.ID, pr.OrganizationID, pr.SKU, pr.Name, pr.Description, pr.Unit, pr.UnitPrice, pr.ImageURL,
		), &stored)
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Product{}, nil, ErrNotFound
		case storage.IsUniqueViolation(err):
			return Product{}, nil, ErrDuplicate
		}
		return Product{}, nil, fmt.Errorf("update product: %w", err)
	}
	return stored, previous, nil
}

// Delete removes a product and returns the deleted row.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) (Product, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var pr Product
	err := scanProduct(r.db.QueryRow(ctx, `DELETE FROM products WHERE id = $1 AND organization_id = $2 RETURNING `+columns+`;`, id, orgID), &pr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("delete product: %w", err)
	}
	return pr, nil
}

func scanProduct(row pgx.Row, pr *Product) error {
	return row.Scan(
		&pr.ID,
		&pr.OrganizationID,
		&pr.SKU,
		&pr.Name,
		&pr.Description,
		&pr.Unit,
		&pr.UnitPrice,
		&pr.ImageURL,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
}
