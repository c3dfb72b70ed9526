package employee

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

const columns = `id, organization_id, code, first_name, last_name, email, phone, position, image_url, created_at, updated_at`

// Repository persists employees.
type Repository struct {
	db storage.DB
}

// NewRepository builds an employee repository.
func NewRepository(db storage.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of employees matching the search on code or name.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Employee, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	filter := `WHERE organization_id = $1
  AND ($2 = '' OR code ILIKE $2 OR first_name ILIKE $2 OR last_name ILIKE $2 OR (first_name || ' ' || last_name) ILIKE $2)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM employees `+filter+`;`, orgID, p.Pattern()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM employees `+filter+`
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4;`, orgID, p.Pattern(), p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, 0, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, total, nil
}

// Get fetches one employee of the organization.
func (r *Repository) Get(ctx context.Context, orgID, id uuid.UUID) (Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var e Employee
	if err := scanEmployee(r.db.QueryRow(ctx, `SELECT `+columns+` FROM employees WHERE id = $1 AND organization_id = $2;`, id, orgID), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

// Create inserts an employee.
func (r *Repository) Create(ctx context.Context, e Employee) (Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO employees (id, organization_id, code, first_name, last_name, email, phone, position, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + columns + `;`

	var stored Employee
	err := scanEmployee(r.db.QueryRow(ctx, query,
		e.ID, e.OrganizationID, e.Code, e.FirstName, e.LastName, e.Email, e.Phone, e.Position, e.ImageURL,
	), &stored)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return Employee{}, ErrDuplicate
		}
		return Employee{}, fmt.Errorf("create employee: %w", err)
	}
	return stored, nil
}

// Update replaces an employee and reports the image it referenced before.
func (r *Repository) Update(ctx context.Context, e Employee) (Employee, *string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var (
		stored   Employee
		previous *string
	)
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT image_url FROM employees WHERE id = $1 AND organization_id = $2 FOR UPDATE;`,
			e.ID, e.OrganizationID).Scan(&previous); err != nil {
			return err
		}
		query := `
UPDATE employees
SET code = $3, first_name = $4, last_name = $5, email = $6, phone = $7, position = $8, image_url = $9, updated_at = NOW()
WHERE id = $1 AND organization_id = $2
RETURNING ` + columns + `;`
		return scanEmployee(tx.QueryRow(ctx, query,
			e.ID, e.OrganizationID, e.Code, e.FirstName, e.LastName, e.Email, e.Phone, e.Position, e.ImageURL,
		), &stored)
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Employee{}, nil, ErrNotFound
		case storage.IsUniqueViolation(err):
			return Employee{}, nil, ErrDuplicate
		}
		return Employee{}, nil, fmt.Errorf("update employee: %w", err)
	}
	return stored, previous, nil
}

// Delete removes an employee and returns the deleted row.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) (Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var e Employee
	if err := scanEmployee(r.db.QueryRow(ctx, `DELETE FROM employees WHERE id = $1 AND organization_id = $2 RETURNING `+columns+`;`, id, orgID), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, fmt.Errorf("delete employee: %w", err)
	}
	return e, nil
}

func scanEmployee(row pgx.Row, e *Employee) error {
	return row.Scan(
		&e.ID,
		&e.OrganizationID,
		&e.Code,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.Phone,
		&e.Position,
		&e.ImageURL,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}
