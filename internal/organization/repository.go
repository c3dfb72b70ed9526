package organization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/backoffice/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const repositoryTimeout = 5 * time.Second

// Repository allows access to organization persistence.
type Repository struct {
	db storage.Querier
}

// NewRepository constructs an organization repository.
func NewRepository(db storage.Querier) *Repository {
	return &Repository{db: db}
}

// InsertTx creates an organization using q, which is normally the
// registration transaction.
func (r *Repository) InsertTx(ctx context.Context, q storage.Querier, name string) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := q.Exec(ctx, `INSERT INTO organizations (id, name) VALUES ($1, $2);`, id, name); err != nil {
		return uuid.Nil, fmt.Errorf("insert organization: %w", err)
	}
	return id, nil
}

// Get returns the organization with its record counts.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT o.id, o.name, o.created_at, o.updated_at,
       (SELECT COUNT(*) FROM users u WHERE u.organization_id = o.id),
       (SELECT COUNT(*) FROM customers c WHERE c.organization_id = o.id),
       (SELECT COUNT(*) FROM employees e WHERE e.organization_id = o.id),
       (SELECT COUNT(*) FROM products p WHERE p.organization_id = o.id),
       (SELECT COUNT(*) FROM quotations q WHERE q.organization_id = o.id)
FROM organizations o
WHERE o.id = $1;`

	var org Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedAt,
		&org.UpdatedAt,
		&org.Usage.Users,
		&org.Usage.Customers,
		&org.Usage.Employees,
		&org.Usage.Products,
		&org.Usage.Quotations,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

// Rename updates the organization name.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE organizations SET name = $2, updated_at = NOW() WHERE id = $1;`, id, name)
	if err != nil {
		return fmt.Errorf("rename organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
