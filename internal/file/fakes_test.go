package file

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/events"
	"github.com/abduss/backoffice/internal/grant"
	"github.com/abduss/backoffice/internal/objectstore"
)

type fakeLedger struct {
	mu          sync.Mutex
	rows        map[string]grant.Grant
	ttl         time.Duration
	now         func() time.Time
	createErr   error
	deleteErr   error
	deleteCalls []string
	releases    []string
}

func newFakeLedger(now func() time.Time) *fakeLedger {
	return &fakeLedger{rows: map[string]grant.Grant{}, ttl: 24 * time.Hour, now: now}
}

func (f *fakeLedger) Create(_ context.Context, inputs []grant.Input) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	now := f.now().UTC()
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		id := grant.NewID(in.FileName, now)
		f.rows[id] = grant.Grant{
			ID:          id,
			FileName:    in.FileName,
			FileType:    in.FileType,
			FileSize:    in.FileSize,
			IssuedAt:    now,
			ExpiredAt:   now.Add(f.ttl),
			IssuedBy:    in.IssuedBy,
			ReadAccess:  in.ReadAccess,
			WriteAccess: in.WriteAccess,
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeLedger) FindByID(_ context.Context, id string) (grant.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[id]
	if !ok {
		return grant.Grant{}, grant.ErrNotFound
	}
	return g, nil
}

func (f *fakeLedger) MarkFulfilled(_ context.Context, id string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[id]
	now := f.now().UTC()
	if !ok || g.Fulfilled() || g.Expired(now) {
		return time.Time{}, grant.ErrNotFulfillable
	}
	g.UploadedAt = &now
	f.rows[id] = g
	return now, nil
}

func (f *fakeLedger) Release(_ context.Context, id string, claimedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, id)
	g, ok := f.rows[id]
	if ok && g.UploadedAt != nil && g.UploadedAt.Equal(claimedAt) {
		g.UploadedAt = nil
		f.rows[id] = g
	}
	return nil
}

func (f *fakeLedger) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeLedger) ListExpiredUnfulfilled(_ context.Context, before time.Time, limit int) ([]grant.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []grant.Grant
	for _, g := range f.rows {
		if g.UploadedAt == nil && g.ExpiredAt.Before(before) {
			out = append(out, g)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	return ok
}

func (f *fakeLedger) get(t *testing.T, id string) grant.Grant {
	t.Helper()
	g, err := f.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("grant %s: %v", id, err)
	}
	return g
}

// brokenDeleteStore fails every Delete while delegating the rest.
type brokenDeleteStore struct {
	*objectstore.MemoryStore
}

func (brokenDeleteStore) Delete(context.Context, string) error {
	return errors.New("object store unavailable")
}

// failingPutStore refuses every Put while delegating the rest.
type failingPutStore struct {
	*objectstore.MemoryStore
}

func (failingPutStore) Put(context.Context, string, string, []byte) error {
	return errors.New("object store unavailable")
}

// gatedStore holds a Put whose payload equals block until release is closed.
type gatedStore struct {
	*objectstore.MemoryStore
	block   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	if string(data) == g.block {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Put(ctx, key, contentType, data)
}

type fakeScanner struct {
	err error
}

func (f fakeScanner) Scan(context.Context, []byte) error { return f.err }

type recordingPublisher struct {
	mu     sync.Mutex
	names  []string
	events []events.FileEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, name string, ev events.FileEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.events = append(r.events, ev)
	return r.err
}

type fixture struct {
	svc    *Service
	ledger *fakeLedger
	store  *objectstore.MemoryStore
	clock  time.Time
}

const testPrefix = "http://localhost:8080/files/"

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		store: objectstore.NewMemoryStore(),
		clock: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }
	f.ledger = newFakeLedger(now)

	opts := Options{
		PublicPrefix:   testPrefix,
		MaxUploadBytes: 1024,
		MaxBatch:       5,
		RequireAuth:    true,
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.svc = NewService(f.ledger, f.store, access.NewEvaluator(nil), opts, nil)
	f.svc.now = now
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) presignOne(t *testing.T, caller access.Caller, policy access.Policy) string {
	t.Helper()
	ids, err := f.svc.Presign(context.Background(), caller, []Descriptor{{FileName: "a.png", FileType: "image/png", FileSize: 4}}, policy)
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}
	return ids[0]
}

func (f *fixture) uploaded(t *testing.T, caller access.Caller, policy access.Policy) string {
	t.Helper()
	id := f.presignOne(t, caller, policy)
	if _, err := f.svc.Upload(context.Background(), caller, id, []byte("data")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return id
}

func user(id string) access.Caller {
	return access.Caller{UserID: id, OrganizationID: "org-1"}
}

// presigningStore adds direct URLs on top of the memory store.
type presigningStore struct {
	*objectstore.MemoryStore
	ttl time.Duration
}

func (p *presigningStore) PresignGet(_ context.Context, key, _ string, ttl time.Duration) (string, error) {
	p.ttl = ttl
	return "https://objects.example.com/" + key + "?sig=1", nil
}
