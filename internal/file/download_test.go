package file

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadURLRequiresPresigningStore(t *testing.T) {
	f := newFixture(t)
	id := f.uploaded(t, user("u1"), access.PublicReadOwnerWritePolicy)

	_, err := f.svc.DownloadURL(context.Background(), user("u1"), id)
	assert.ErrorIs(t, err, ErrDirectUnsupported)
}

func TestDownloadURLAuthorizesRead(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.DownloadURLTTL = 2 * time.Minute })
	store := &presigningStore{MemoryStore: f.store}
	f.svc.store = store

	private := f.uploaded(t, user("u1"), access.OwnerOnlyPolicy)
	pending := f.presignOne(t, user("u1"), access.PublicPolicy)

	u, err := f.svc.DownloadURL(context.Background(), user("u1"), private)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.example.com/"+private+"?sig=1", u)
	assert.Equal(t, 2*time.Minute, store.ttl)

	_, err = f.svc.DownloadURL(context.Background(), user("u2"), private)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.DownloadURL(context.Background(), access.Anonymous(), pending)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.DownloadURL(context.Background(), user("u1"), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchRedirectOverHTTP(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	id := f.uploaded(t, user("u1"), access.PublicReadOwnerWritePolicy)

	// Without a presigning store the bytes are streamed.
	rec := do(router, http.MethodGet, "/files/"+id+"?redirect=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data", rec.Body.String())

	f.svc.store = &presigningStore{MemoryStore: f.store}
	rec = do(router, http.MethodGet, "/files/"+id+"?redirect=true", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), id)

	owned := f.uploaded(t, user("u1"), access.OwnerOnlyPolicy)
	rec = do(router, http.MethodGet, "/api/file/"+owned+"?redirect=true", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
