package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/backoffice/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultQueryTimeout = 5 * time.Second

// organizationWriter creates the tenant row inside the registration transaction.
type organizationWriter interface {
	InsertTx(ctx context.Context, q storage.Querier, name string) (uuid.UUID, error)
}

// Repository provides database access for authentication concerns.
type Repository struct {
	db   storage.DB
	orgs organizationWriter
}

// NewRepository constructs a new Repository.
func NewRepository(db storage.DB, orgs organizationWriter) *Repository {
	return &Repository{db: db, orgs: orgs}
}

// RegisterOwner creates an organization and its first administrator in one
// transaction.
func (r *Repository) RegisterOwner(ctx context.Context, orgName, email, passwordHash string, displayName *string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO users (organization_id, email, password_hash, display_name, is_admin)
VALUES ($1, $2, $3, $4, TRUE)
RETURNING id, organization_id, email, password_hash, display_name, is_admin, created_at, updated_at;`

	var user User
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		orgID, err := r.orgs.InsertTx(ctx, tx, orgName)
		if err != nil {
			return err
		}
		row := tx.QueryRow(ctx, query, orgID, email, passwordHash, displayName)
		return scanUser(row, &user)
	})
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return User{}, ErrEmailAlreadyExists
		}
		return User{}, fmt.Errorf("register owner: %w", err)
	}
	return user, nil
}

// FindUserByEmail fetches a user by email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
SELECT id, organization_id, email, password_hash, display_name, is_admin, created_at, updated_at
FROM users
WHERE email = $1;`

	var user User
	if err := scanUser(r.db.QueryRow(ctx, query, email), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// StoreRefreshToken saves or updates a refresh token hash for the user.
func (r *Repository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked_at)
VALUES ($1, $2, $3, NULL)
ON CONFLICT (user_id, token_hash)
DO UPDATE SET expires_at = EXCLUDED.expires_at, revoked_at = NULL, created_at = NOW();`

	if _, err := r.db.Exec(ctx, query, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// RevokeToken marks a refresh token as revoked.
func (r *Repository) RevokeToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
UPDATE refresh_tokens
SET revoked_at = NOW()
WHERE user_id = $1 AND token_hash = $2;`

	if _, err := r.db.Exec(ctx, query, userID, tokenHash); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row, user *User) error {
	return row.Scan(
		&user.ID,
		&user.OrganizationID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
