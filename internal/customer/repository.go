package customer

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

const columns = `id, organization_id, code, name, tax_id, branch, address, email, phone, created_at, updated_at`

// Repository persists customers and their child collections.
type Repository struct {
	db storage.DB
}

// NewRepository builds a customer repository.
func NewRepository(db storage.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of customers without their child collections.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Customer, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	filter := `WHERE organization_id = $1 AND ($2 = '' OR code ILIKE $2 OR name ILIKE $2 OR tax_id ILIKE $2)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers `+filter+`;`, orgID, p.Pattern()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM customers `+filter+`
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4;`, orgID, p.Pattern(), p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, total, nil
}

// Get loads a customer with contacts, bank accounts and attachments.
func (r *Repository) Get(ctx context.Context, orgID, id uuid.UUID) (Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var c Customer
	if err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id = $1 AND organization_id = $2;`, id, orgID), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	if err := loadChildren(ctx, r.db, &c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Exists reports whether the customer belongs to the organization.
func (r *Repository) Exists(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var found bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND organization_id = $2);`, id, orgID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check customer: %w", err)
	}
	return found, nil
}

// Create inserts the customer and all children in one transaction.
func (r *Repository) Create(ctx context.Context, c Customer) (Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	stored := c
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
INSERT INTO customers (id, organization_id, code, name, tax_id, branch, address, email, phone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at;`
		if err := tx.QueryRow(ctx, query,
			c.ID, c.OrganizationID, c.Code, c.Name, c.TaxID, c.Branch, c.Address, c.Email, c.Phone,
		).Scan(&stored.CreatedAt, &stored.UpdatedAt); err != nil {
			return err
		}
		return insertChildren(ctx, tx, c)
	})
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return Customer{}, ErrDuplicate
		}
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return stored, nil
}

// Update rewrites the customer row and replaces every child collection. It
// returns the attachment URLs held before the update.
func (r *Repository) Update(ctx context.Context, c Customer) (Customer, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	stored := c
	var previous []string
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if previous, err = lockAttachments(ctx, tx, c.OrganizationID, c.ID); err != nil {
			return err
		}

		query := `
UPDATE customers
SET code = $3, name = $4, tax_id = $5, branch = $6, address = $7, email = $8, phone = $9, updated_at = NOW()
WHERE id = $1 AND organization_id = $2
RETURNING created_at, updated_at;`
		if err := tx.QueryRow(ctx, query,
			c.ID, c.OrganizationID, c.Code, c.Name, c.TaxID, c.Branch, c.Address, c.Email, c.Phone,
		).Scan(&stored.CreatedAt, &stored.UpdatedAt); err != nil {
			return err
		}

		for _, table := range []string{"customer_contacts", "customer_bank_accounts", "customer_attachments"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE customer_id = $1;`, c.ID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return insertChildren(ctx, tx, c)
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Customer{}, nil, ErrNotFound
		case storage.IsUniqueViolation(err):
			return Customer{}, nil, ErrDuplicate
		}
		return Customer{}, nil, fmt.Errorf("update customer: %w", err)
	}
	return stored, previous, nil
}

// Delete removes the customer; children cascade. It returns the attachment
// URLs the customer held.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var urls []string
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if urls, err = lockAttachments(ctx, tx, orgID, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM customers WHERE id = $1 AND organization_id = $2;`, id, orgID)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		case storage.IsForeignKeyViolation(err):
			return nil, ErrInUse
		}
		return nil, fmt.Errorf("delete customer: %w", err)
	}
	return urls, nil
}

// lockAttachments locks the customer row and returns its attachment URLs.
func lockAttachments(ctx context.Context, tx pgx.Tx, orgID, id uuid.UUID) ([]string, error) {
	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM customers WHERE id = $1 AND organization_id = $2 FOR UPDATE;`, id, orgID).Scan(&locked); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT file_url FROM customer_attachments WHERE customer_id = $1 ORDER BY sort_order;`, id)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

func insertChildren(ctx context.Context, tx pgx.Tx, c Customer) error {
	for i, contact := range c.Contacts {
		if _, err := tx.Exec(ctx, `
INSERT INTO customer_contacts (id, customer_id, sort_order, name, email, phone, position)
VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			uuid.New(), c.ID, i, contact.Name, contact.Email, contact.Phone, contact.Position); err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
	}
	for i, account := range c.BankAccounts {
		if _, err := tx.Exec(ctx, `
INSERT INTO customer_bank_accounts (id, customer_id, sort_order, bank_name, account_name, account_number, branch)
VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			uuid.New(), c.ID, i, account.BankName, account.AccountName, account.AccountNumber, account.Branch); err != nil {
			return fmt.Errorf("insert bank account: %w", err)
		}
	}
	for i, attachment := range c.Attachments {
		if _, err := tx.Exec(ctx, `
INSERT INTO customer_attachments (id, customer_id, sort_order, file_url, file_name)
VALUES ($1, $2, $3, $4, $5);`,
			uuid.New(), c.ID, i, attachment.FileURL, attachment.FileName); err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}
	return nil
}

func loadChildren(ctx context.Context, q storage.Querier, c *Customer) error {
	rows, err := q.Query(ctx, `SELECT name, email, phone, position FROM customer_contacts WHERE customer_id = $1 ORDER BY sort_order;`, c.ID)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}
	c.Contacts, err = pgx.CollectRows(rows, pgx.RowToStructByPos[Contact])
	if err != nil {
		return fmt.Errorf("scan contacts: %w", err)
	}

	rows, err = q.Query(ctx, `SELECT bank_name, account_name, account_number, branch FROM customer_bank_accounts WHERE customer_id = $1 ORDER BY sort_order;`, c.ID)
	if err != nil {
		return fmt.Errorf("list bank accounts: %w", err)
	}
	c.BankAccounts, err = pgx.CollectRows(rows, pgx.RowToStructByPos[BankAccount])
	if err != nil {
		return fmt.Errorf("scan bank accounts: %w", err)
	}

	rows, err = q.Query(ctx, `SELECT file_url, file_name FROM customer_attachments WHERE customer_id = $1 ORDER BY sort_order;`, c.ID)
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}
	c.Attachments, err = pgx.CollectRows(rows, pgx.RowToStructByPos[Attachment])
	if err != nil {
		return fmt.Errorf("scan attachments: %w", err)
	}
	return nil
}

func scanCustomer(row pgx.Row, c *Customer) error {
	return row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Code,
		&c.Name,
		&c.TaxID,
		&c.Branch,
		&c.Address,
		&c.Email,
		&c.Phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}
