package organization

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/backoffice/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
)

func TestRenameTrimsAndReturnsUpdated(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add("Acme")
	service := NewService(repo)

	org, err := service.Rename(context.Background(), id, "  Acme Holdings ")
	if err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}
	if org.Name != "Acme Holdings" {
		t.Fatalf("expected trimmed name, got %q", org.Name)
	}
}

func TestRenameRejectsBlankName(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add("Acme")
	service := NewService(repo)

	if _, err := service.Rename(context.Background(), id, "   "); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if repo.orgs[id].Name != "Acme" {
		t.Fatalf("name must not change")
	}
}

func TestGetUnknownOrganization(t *testing.T) {
	service := NewService(newFakeRepo())
	if _, err := service.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertTxUsesGivenQuerier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO organizations").
		WithArgs(pgxmock.AnyArg(), "Acme").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := NewRepository(nil).InsertTx(context.Background(), mock, "Acme")
	if err != nil {
		t.Fatalf("InsertTx returned error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRenameRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newFakeRepo()
	id := repo.add("Acme")

	cases := []struct {
		name    string
		isAdmin bool
		want    int
	}{
		{name: "member", isAdmin: false, want: http.StatusForbidden},
		{name: "admin", isAdmin: true, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			group := router.Group("/v1", func(c *gin.Context) {
				auth.SetUser(c, auth.ContextUser{ID: uuid.NewString(), OrganizationID: id.String(), IsAdmin: tc.isAdmin})
			})
			RegisterRoutes(group, NewService(repo))

			req := httptest.NewRequest(http.MethodPatch, "/v1/organization", bytes.NewBufferString(`{"name":"Renamed"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

type fakeRepo struct {
	orgs map[uuid.UUID]Organization
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orgs: make(map[uuid.UUID]Organization)}
}

func (f *fakeRepo) add(name string) uuid.UUID {
	id := uuid.New()
	f.orgs[id] = Organization{ID: id, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return id
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (f *fakeRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	org, ok := f.orgs[id]
	if !ok {
		return ErrNotFound
	}
	org.Name = name
	f.orgs[id] = org
	return nil
}
