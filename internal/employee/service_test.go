package employee

import (
	"context"
	"errors"
	"testing"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/paging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	rows map[uuid.UUID]Employee
}

func (m *memoryRepo) List(_ context.Context, orgID uuid.UUID, _ paging.Params) ([]Employee, int64, error) {
	var out []Employee
	for _, e := range m.rows {
		if e.OrganizationID == orgID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryRepo) Get(_ context.Context, orgID, id uuid.UUID) (Employee, error) {
	e, ok := m.rows[id]
	if !ok || e.OrganizationID != orgID {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (m *memoryRepo) Create(_ context.Context, e Employee) (Employee, error) {
	m.rows[e.ID] = e
	return e, nil
}

func (m *memoryRepo) Update(_ context.Context, e Employee) (Employee, *string, error) {
	old, ok := m.rows[e.ID]
	if !ok || old.OrganizationID != e.OrganizationID {
		return Employee{}, nil, ErrNotFound
	}
	m.rows[e.ID] = e
	return e, old.ImageURL, nil
}

func (m *memoryRepo) Delete(_ context.Context, orgID, id uuid.UUID) (Employee, error) {
	e, ok := m.rows[id]
	if !ok || e.OrganizationID != orgID {
		return Employee{}, ErrNotFound
	}
	delete(m.rows, id)
	return e, nil
}

type spyReconciler struct {
	old, new []*string
}

func (s *spyReconciler) Reconcile(_ context.Context, _ access.Caller, oldURL, newURL *string) {
	s.old = append(s.old, oldURL)
	s.new = append(s.new, newURL)
}

func ptr(s string) *string { return &s }

var org = uuid.MustParse("0d9b1f86-0f5e-4f6b-9a59-3f6d1b7a2c11")

func owner() access.Caller {
	return access.Caller{UserID: "u1", OrganizationID: org.String()}
}

func validInput() Input {
	return Input{Code: "E-001", FirstName: "Somchai", LastName: "Jaidee", Email: "Somchai@Example.com", ImageURL: ptr("http://localhost/files/a.png")}
}

func TestCreateNormalizesEmployee(t *testing.T) {
	service := NewService(&memoryRepo{rows: map[uuid.UUID]Employee{}}, &spyReconciler{})

	e, err := service.Create(context.Background(), owner(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "somchai@example.com", e.Email)
	assert.Equal(t, org, e.OrganizationID)
}

func TestCreateRejectsInvalidEmployee(t *testing.T) {
	service := NewService(&memoryRepo{rows: map[uuid.UUID]Employee{}}, &spyReconciler{})

	missingName := validInput()
	missingName.LastName = "  "
	badEmail := validInput()
	badEmail.Email = "not-an-email"

	for _, in := range []Input{missingName, badEmail} {
		_, err := service.Create(context.Background(), owner(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestImageLifecycleIsReconciled(t *testing.T) {
	files := &spyReconciler{}
	service := NewService(&memoryRepo{rows: map[uuid.UUID]Employee{}}, files)

	e, err := service.Create(context.Background(), owner(), validInput())
	require.NoError(t, err)

	in := validInput()
	in.ImageURL = nil
	_, err = service.Update(context.Background(), owner(), e.ID, in)
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), owner(), e.ID))

	require.Len(t, files.old, 2)
	assert.Equal(t, "http://localhost/files/a.png", *files.old[0])
	assert.Nil(t, files.new[0])
	assert.Nil(t, files.old[1])
	assert.Nil(t, files.new[1])
}

func TestDeleteUnknownEmployee(t *testing.T) {
	files := &spyReconciler{}
	service := NewService(&memoryRepo{rows: map[uuid.UUID]Employee{}}, files)

	err := service.Delete(context.Background(), owner(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, files.old)
}

func TestRepositoryMapsUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO employees").
		WithArgs(pgxmock.AnyArg(), org, "E-001", "A", "B", "", "", "", (*string)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = NewRepository(mock).Create(context.Background(), Employee{ID: uuid.New(), OrganizationID: org, Code: "E-001", FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateRollsBackOnMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT image_url FROM employees").
		WithArgs(id, org).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, _, err = NewRepository(mock).Update(context.Background(), Employee{ID: id, OrganizationID: org, Code: "E-1", FirstName: "A", LastName: "B"})
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}
