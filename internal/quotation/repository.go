package quotation

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

const repoTimeout = 10 * time.Second

const columns = `q.id, q.organization_id, q.customer_id, c.name, q.number, q.issue_date, q.valid_until, q.status, q.note,
q.vat_rate, q.subtotal, q.vat, q.total, q.created_at, q.updated_at`

// Repository persists quotations and their items.
type Repository struct {
	db storage.DB
}

// NewRepository builds a quotation repository.
func NewRepository(db storage.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of quotations, searching number and customer name.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Quotation, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	from := `FROM quotations q JOIN customers c ON c.id = q.customer_id
WHERE q.organization_id = $1 AND ($2 = '' OR q.number ILIKE $2 OR c.name ILIKE $2)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) `+from+`;`, orgID, p.Pattern()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotations: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+columns+` `+from+`
ORDER BY q.created_at DESC, q.id
LIMIT $3 OFFSET $4;`, orgID, p.Pattern(), p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		var q Quotation
		if err := scanQuotation(rows, &q); err != nil {
			return nil, 0, fmt.Errorf("scan quotation: %w", err)
		}
		quotations = append(quotations, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate quotations: %w", err)
	}
	return quotations, total, nil
}

// Get loads a quotation with its items.
func (r *Repository) Get(ctx context.Context, orgID, id uuid.UUID) (Quotation, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var q Quotation
	err := scanQuotation(r.db.QueryRow(ctx, `SELECT `+columns+`
FROM quotations q JOIN customers c ON c.id = q.customer_id
WHERE q.id = $1 AND q.organization_id = $2;`, id, orgID), &q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, ErrNotFound
		}
		return Quotation{}, fmt.Errorf("get quotation: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT product_id, description, quantity, unit_price, amount
FROM quotation_items WHERE quotation_id = $1 ORDER BY sort_order;`, id)
	if err != nil {
		return Quotation{}, fmt.Errorf("list quotation items: %w", err)
	}
	q.Items, err = pgx.CollectRows(rows, pgx.RowToStructByPos[Item])
	if err != nil {
		return Quotation{}, fmt.Errorf("scan quotation items: %w", err)
	}
	return q, nil
}

// Create inserts the quotation and its items in one transaction.
func (r *Repository) Create(ctx context.Context, q Quotation) (Quotation, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	stored := q
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
INSERT INTO quotations (id, organization_id, customer_id, number, issue_date, valid_until, status, note, vat_rate, subtotal, vat, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at;`
		if err := tx.QueryRow(ctx, query,
			q.ID, q.OrganizationID, q.CustomerID, q.Number, q.IssueDate.Time, q.ValidUntil.Time, string(q.Status), q.Note,
			q.VATRate, q.Subtotal, q.VAT, q.Total,
		).Scan(&stored.CreatedAt, &stored.UpdatedAt); err != nil {
			return err
		}
		return insertItems(ctx, tx, q)
	})
	if err != nil {
		return Quotation{}, mapWriteError("create quotation", err)
	}
	return stored, nil
}

// Update rewrites the quotation and replaces its items.
func (r *Repository) Update(ctx context.Context, q Quotation) (Quotation, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	stored := q
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
UPDATE quotations
SET customer_id = $3, number = $4, issue_date = $5, valid_until = $6, status = $7, note = $8,
    vat_rate = $9, subtotal = $10, vat = $11, total = $12, updated_at = NOW()
WHERE id = $1 AND organization_id = $2
RETURNING created_at, updated_at;`
		if err := tx.QueryRow(ctx, query,
			q.ID, q.OrganizationID, q.CustomerID, q.Number, q.IssueDate.Time, q.ValidUntil.Time, string(q.Status), q.Note,
			q.VATRate, q.Subtotal, q.VAT, q.Total,
		).Scan(&stored.CreatedAt, &stored.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1;`, q.ID); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}
		return insertItems(ctx, tx, q)
	})
	if err != nil {
		return Quotation{}, mapWriteError("update quotation", err)
	}
	return stored, nil
}

// Delete removes a quotation; items cascade.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1 AND organization_id = $2;`, id, orgID)
	if err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// insertItems verifies referenced products belong to the organization and
// writes the lines in order.
func insertItems(ctx context.Context, tx pgx.Tx, q Quotation) error {
	var productIDs []string
	for _, item := range q.Items {
		if item.ProductID != nil {
			productIDs = append(productIDs, item.ProductID.String())
		}
	}
	if len(productIDs) > 0 {
		var foreign int
		err := tx.QueryRow(ctx, `
SELECT COUNT(*) FROM UNNEST($2::uuid[]) AS ref(id)
WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.id = ref.id AND p.organization_id = $1);`,
			q.OrganizationID, productIDs).Scan(&foreign)
		if err != nil {
			return fmt.Errorf("check products: %w", err)
		}
		if foreign > 0 {
			return fmt.Errorf("%w: items reference unknown products", ErrInvalidInput)
		}
	}

	for i, item := range q.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO quotation_items (id, quotation_id, sort_order, product_id, description, quantity, unit_price, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			uuid.New(), q.ID, i, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.Amount); err != nil {
			return fmt.Errorf("insert item %d: %w", i, err)
		}
	}
	return nil
}

func mapWriteError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, ErrInvalidInput):
		return err
	case storage.IsUniqueViolation(err):
		return ErrDuplicate
	case storage.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: referenced customer or product no longer exists", ErrInvalidInput)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanQuotation(row pgx.Row, q *Quotation) error {
	var status string
	err := row.Scan(
		&q.ID,
		&q.OrganizationID,
		&q.CustomerID,
		&q.CustomerName,
		&q.Number,
		&q.IssueDate.Time,
		&q.ValidUntil.Time,
		&status,
		&q.Note,
		&q.VATRate,
		&q.Subtotal,
		&q.VAT,
		&q.Total,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	q.Status = Status(status)
	return err
}
