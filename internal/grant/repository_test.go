package grant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewRepository(mock, 24*time.Hour)
	repo.nowFunc = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return repo, mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCreateInsertsAllRowsInOneTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	owner := "u1"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO file_grants").WithArgs(anyArgs(9)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO file_grants").WithArgs(anyArgs(9)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ids, err := repo.Create(context.Background(), []Input{
		{FileName: "a.png", FileType: "image/png", FileSize: 10, IssuedBy: &owner, ReadAccess: access.Owner(owner), WriteAccess: access.Owner(owner)},
		{FileName: "b.png", FileType: "image/png", FileSize: 20, IssuedBy: &owner, ReadAccess: access.Owner(owner), WriteAccess: access.Owner(owner)},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.True(t, strings.HasSuffix(ids[0], "-20240501T100000Z.png"), ids[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO file_grants").WithArgs(anyArgs(9)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO file_grants").WithArgs(anyArgs(9)...).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	ids, err := repo.Create(context.Background(), []Input{
		{FileName: "a.png", FileType: "image/png", ReadAccess: access.Public{}, WriteAccess: access.Public{}},
		{FileName: "b.png", FileType: "image/png", ReadAccess: access.Public{}, WriteAccess: access.Public{}},
	})
	require.Error(t, err)
	assert.Nil(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsMissingRuleBeforeWriting(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), []Input{{FileName: "a.png"}})
	require.ErrorIs(t, err, access.ErrMalformedRule)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM file_grants WHERE id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindByIDDecodesRules(t *testing.T) {
	repo, mock := newMockRepo(t)
	issued := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	owner := "u1"

	rows := pgxmock.NewRows([]string{
		"id", "file_name", "file_type", "file_size", "issued_at", "expired_at",
		"issued_by", "uploaded_at", "read_access_control", "write_access_control",
	}).AddRow(
		"g1", "a.png", "image/png", int64(10), issued, issued.Add(24*time.Hour),
		&owner, (*time.Time)(nil), []byte(`{"rule":"public"}`), []byte(`{"rule":"userId","userId":"u1"}`),
	)
	mock.ExpectQuery("FROM file_grants WHERE id").WithArgs("g1").WillReturnRows(rows)

	g, err := repo.FindByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, access.Public{}, g.ReadAccess)
	assert.Equal(t, access.Owner("u1"), g.WriteAccess)
	assert.False(t, g.Fulfilled())
	require.NotNil(t, g.IssuedBy)
	assert.Equal(t, "u1", *g.IssuedBy)
}

func TestMarkFulfilledIsCompareAndSet(t *testing.T) {
	repo, mock := newMockRepo(t)
	stamp := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE file_grants").WithArgs("g1", stamp).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE file_grants").WithArgs("g1", stamp).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	claimedAt, err := repo.MarkFulfilled(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, stamp, claimedAt)

	_, err = repo.MarkFulfilled(context.Background(), "g1")
	require.ErrorIs(t, err, ErrNotFulfillable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFulfilledStampFitsTimestamptz(t *testing.T) {
	repo, mock := newMockRepo(t)
	repo.nowFunc = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC) }
	want := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)

	mock.ExpectExec("UPDATE file_grants").WithArgs("g1", want).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	claimedAt, err := repo.MarkFulfilled(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, want, claimedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseClearsOnlyTheGivenClaim(t *testing.T) {
	repo, mock := newMockRepo(t)
	stamp := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`SET uploaded_at = NULL\s+WHERE id = \$1 AND uploaded_at = \$2`).
		WithArgs("g1", stamp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("SET uploaded_at = NULL").
		WithArgs("g1", stamp).
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, repo.Release(context.Background(), "g1", stamp))
	require.Error(t, repo.Release(context.Background(), "g1", stamp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM file_grants").WithArgs("gone").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "gone"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewIDShape(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("ICT", 7*3600))

	id := NewID("Invoice Scan.PDF", at)
	assert.True(t, strings.HasSuffix(id, "-20240101T200405Z.pdf"), id)

	assert.True(t, strings.HasSuffix(NewID("README", at), ".bin"))
	assert.True(t, strings.HasSuffix(NewID("photo.J?P_G", at), ".jpg"))
	assert.NotEqual(t, NewID("a.png", at), NewID("a.png", at))
}

func TestGrantState(t *testing.T) {
	now := time.Now()
	g := Grant{ExpiredAt: now.Add(time.Minute)}

	assert.False(t, g.Expired(now))
	assert.True(t, g.Expired(now.Add(2*time.Minute)))

	g.UploadedAt = &now
	assert.True(t, g.Fulfilled())
}
