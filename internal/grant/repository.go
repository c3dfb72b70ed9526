package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/storage"
	"github.com/jackc/pgx/v5"
)

const repoTimeout = 5 * time.Second

const selectColumns = `id, file_name, file_type, file_size, issued_at, expired_at, issued_by, uploaded_at, read_access_control, write_access_control`

// Repository is the ledger of issued upload grants.
type Repository struct {
	db      storage.DB
	ttl     time.Duration
	nowFunc func() time.Time
	newID   func(fileName string, at time.Time) string
}

// NewRepository builds a ledger whose grants expire ttl after issuance.
func NewRepository(db storage.DB, ttl time.Duration) *Repository {
	return &Repository{
		db:      db,
		ttl:     ttl,
		nowFunc: time.Now,
		newID:   NewID,
	}
}

// Create inserts one row per input in a single transaction and returns the
// generated ids in input order. Either every row is written or none is.
func (r *Repository) Create(ctx context.Context, inputs []Input) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	now := r.nowFunc().UTC()
	expires := now.Add(r.ttl)

	query := `
INSERT INTO file_grants (id, file_name, file_type, file_size, issued_at, expired_at, issued_by, uploaded_at, read_access_control, write_access_control)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, $9);`

	ids := make([]string, 0, len(inputs))
	err := storage.InTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, in := range inputs {
			readRule, err := access.Encode(in.ReadAccess)
			if err != nil {
				return fmt.Errorf("encode read rule: %w", err)
			}
			writeRule, err := access.Encode(in.WriteAccess)
			if err != nil {
				return fmt.Errorf("encode write rule: %w", err)
			}

			id := r.newID(in.FileName, now)
			if _, err := tx.Exec(ctx, query,
				id,
				in.FileName,
				in.FileType,
				in.FileSize,
				now,
				expires,
				in.IssuedBy,
				string(readRule),
				string(writeRule),
			); err != nil {
				return fmt.Errorf("insert grant: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FindByID fetches a grant regardless of its expiry or fulfillment state.
func (r *Repository) FindByID(ctx context.Context, id string) (Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM file_grants WHERE id = $1;`, id)
	g, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("find grant: %w", err)
	}
	return g, nil
}

// MarkFulfilled claims the grant by stamping uploaded_at with a
// compare-and-set: the update only applies while the grant is unfulfilled
// and unexpired, so at most one caller wins. The returned stamp identifies
// the claim for Release.
func (r *Repository) MarkFulfilled(ctx context.Context, id string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	// timestamptz keeps microseconds; Release compares against this value.
	now := r.nowFunc().UTC().Truncate(time.Microsecond)

	query := `
UPDATE file_grants
SET uploaded_at = $2
WHERE id = $1 AND uploaded_at IS NULL AND expired_at >= $2;`

	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("mark grant fulfilled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return time.Time{}, ErrNotFulfillable
	}
	return now, nil
}

// Release undoes a claim made by MarkFulfilled so the grant can be uploaded
// again. Only the claim stamped at claimedAt is cleared.
func (r *Repository) Release(ctx context.Context, id string, claimedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE file_grants
SET uploaded_at = NULL
WHERE id = $1 AND uploaded_at = $2;`

	if _, err := r.db.Exec(ctx, query, id, claimedAt); err != nil {
		return fmt.Errorf("release grant claim: %w", err)
	}
	return nil
}

// Delete removes the ledger row. Missing rows are not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, `DELETE FROM file_grants WHERE id = $1;`, id); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

// ListExpiredUnfulfilled returns up to limit grants that expired before the
// given instant without ever being uploaded.
func (r *Repository) ListExpiredUnfulfilled(ctx context.Context, before time.Time, limit int) ([]Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + selectColumns + `
FROM file_grants
WHERE uploaded_at IS NULL AND expired_at < $1
ORDER BY expired_at
LIMIT $2;`

	rows, err := r.db.Query(ctx, query, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return grants, nil
}

func scanGrant(row pgx.Row) (Grant, error) {
	var (
		g               Grant
		readRaw, wrtRaw []byte
	)
	if err := row.Scan(
		&g.ID,
		&g.FileName,
		&g.FileType,
		&g.FileSize,
		&g.IssuedAt,
		&g.ExpiredAt,
		&g.IssuedBy,
		&g.UploadedAt,
		&readRaw,
		&wrtRaw,
	); err != nil {
		return Grant{}, err
	}

	var err error
	if g.ReadAccess, err = access.Decode(readRaw); err != nil {
		return Grant{}, fmt.Errorf("decode read rule of %s: %w", g.ID, err)
	}
	if g.WriteAccess, err = access.Decode(wrtRaw); err != nil {
		return Grant{}, fmt.Errorf("decode write rule of %s: %w", g.ID, err)
	}
	return g, nil
}
