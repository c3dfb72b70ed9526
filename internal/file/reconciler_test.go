package file

import (
	"context"
	"errors"
	"testing"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestGrantIDFromURL(t *testing.T) {
	cases := []struct {
		url  string
		id   string
		want bool
	}{
		{url: testPrefix + "abc.png", id: "abc.png", want: true},
		{url: testPrefix + "abc.png?no_cache=true", id: "abc.png", want: true},
		{url: testPrefix, want: false},
		{url: testPrefix + "nested/abc.png", want: false},
		{url: "https://cdn.example.com/abc.png", want: false},
		{url: "", want: false},
	}
	for _, tc := range cases {
		id, ok := GrantIDFromURL(testPrefix, tc.url)
		assert.Equal(t, tc.want, ok, tc.url)
		assert.Equal(t, tc.id, id, tc.url)
	}

	_, ok := GrantIDFromURL("", testPrefix+"abc.png")
	assert.False(t, ok)
}

func TestReconcileReplacesOldFile(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.svc, testPrefix, nil)
	a := f.uploaded(t, user("u1"), access.PublicReadOwnerWritePolicy)
	b := f.uploaded(t, user("u1"), access.PublicReadOwnerWritePolicy)

	r.Reconcile(context.Background(), user("u1"), ptr(f.svc.PublicURL(a)), ptr(f.svc.PublicURL(b)))

	assert.False(t, f.ledger.has(a))
	assert.False(t, f.store.Has(a))
	assert.True(t, f.ledger.has(b))
	assert.True(t, f.store.Has(b))
}

func TestReconcileSameIDIsNoop(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.svc, testPrefix, nil)
	a := f.uploaded(t, user("u1"), access.PublicReadOwnerWritePolicy)
	url := f.svc.PublicURL(a)

	r.Reconcile(context.Background(), user("u1"), ptr(url), ptr(url+"?no_cache=true"))

	assert.Empty(t, f.ledger.deleteCalls)
	assert.True(t, f.ledger.has(a))
	assert.True(t, f.store.Has(a))
}

func TestReconcileEdgeCases(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.svc, testPrefix, nil)
	a := f.uploaded(t, user("u1"), access.PublicReadOwnerWritePolicy)

	r.Reconcile(context.Background(), user("u1"), nil, ptr(f.svc.PublicURL(a)))
	r.Reconcile(context.Background(), user("u1"), ptr("https://elsewhere.example.com/x.png"), nil)
	assert.Empty(t, f.ledger.deleteCalls)

	r.Reconcile(context.Background(), user("u1"), ptr(f.svc.PublicURL(a)), nil)
	assert.False(t, f.ledger.has(a))
}

func TestReconcileSwallowsDeleteErrors(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.svc, testPrefix, nil)
	a := f.uploaded(t, user("u1"), access.OwnerOnlyPolicy)

	// Another user may not delete the file, but the parent mutation still succeeds.
	r.Reconcile(context.Background(), user("u2"), ptr(f.svc.PublicURL(a)), nil)
	assert.True(t, f.ledger.has(a))
}

func TestReconcileCountsFilesTheEditorMayNotDelete(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.svc, testPrefix, nil)
	image := f.uploaded(t, user("u1"), access.PublicReadOwnerWritePolicy)
	attachment := f.uploaded(t, user("u1"), access.OwnerOnlyPolicy)
	before := testutil.ToFloat64(metrics.ReconcileOrphans)

	colleague := user("u2")
	r.Reconcile(context.Background(), colleague, ptr(f.svc.PublicURL(image)), nil)
	r.ReconcileSet(context.Background(), colleague, []string{f.svc.PublicURL(attachment)}, nil)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.ReconcileOrphans))
	assert.True(t, f.ledger.has(image))
	assert.True(t, f.ledger.has(attachment))

	// Other failures are not orphans.
	d := &recordingDeleter{err: errors.New("boom")}
	NewReconciler(d, testPrefix, nil).Reconcile(context.Background(), colleague, ptr(testPrefix+"x.png"), nil)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.ReconcileOrphans))
}

type recordingDeleter struct {
	ids []string
	err error
}

func (d *recordingDeleter) Delete(_ context.Context, _ access.Caller, id string) error {
	d.ids = append(d.ids, id)
	return d.err
}

func TestReconcileSetDeletesRemovedOnly(t *testing.T) {
	d := &recordingDeleter{}
	r := NewReconciler(d, testPrefix, nil)

	old := []string{testPrefix + "a.pdf", testPrefix + "b.pdf", testPrefix + "c.pdf", testPrefix + "a.pdf", "https://other/x.pdf"}
	next := []string{testPrefix + "b.pdf", testPrefix + "d.pdf"}
	r.ReconcileSet(context.Background(), user("u1"), old, next)

	assert.ElementsMatch(t, []string{"a.pdf", "c.pdf"}, d.ids)
}

func TestReconcileSetContinuesAfterFailure(t *testing.T) {
	d := &recordingDeleter{err: errors.New("boom")}
	r := NewReconciler(d, testPrefix, nil)

	r.ReconcileSet(context.Background(), user("u1"), []string{testPrefix + "a.pdf", testPrefix + "b.pdf"}, nil)
	require.Len(t, d.ids, 2)
}
