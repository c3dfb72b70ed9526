package file

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/backoffice/internal/events"
	"github.com/abduss/backoffice/internal/grant"
	"github.com/abduss/backoffice/internal/metrics"
	"github.com/abduss/backoffice/internal/objectstore"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

type expiredLedger interface {
	ListExpiredUnfulfilled(ctx context.Context, before time.Time, limit int) ([]grant.Grant, error)
	Delete(ctx context.Context, id string) error
}

// Reaper periodically removes grants that expired without an upload.
type Reaper struct {
	grants   expiredLedger
	store    objectstore.Store
	events   events.Publisher
	interval time.Duration
	batch    int
	log      *zap.Logger
	now      func() time.Time
}

// NewReaper builds a reaper. An interval of zero or less disables Run.
func NewReaper(grants expiredLedger, store objectstore.Store, pub events.Publisher, interval time.Duration, batch int, log *zap.Logger) *Reaper {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if batch <= 0 {
		batch = 100
	}
	return &Reaper{
		grants:   grants,
		store:    store,
		events:   pub,
		interval: interval,
		batch:    batch,
		log:      log,
		now:      time.Now,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Info("grant reaper disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.Sweep(ctx)
			if err != nil {
				r.log.Warn("grant reaper sweep finished with errors", zap.Int("reaped", n), zap.Error(err))
				continue
			}
			if n > 0 {
				r.log.Info("grant reaper sweep", zap.Int("reaped", n))
			}
		}
	}
}

// Sweep removes one batch of expired, never uploaded grants and returns how
// many ledger rows were deleted.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	expired, err := r.grants.ListExpiredUnfulfilled(ctx, now, r.batch)
	if err != nil {
		return 0, fmt.Errorf("list expired grants: %w", err)
	}

	var (
		result *multierror.Error
		reaped int
	)
	for _, g := range expired {
		if err := r.store.Delete(ctx, g.ID); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete object %s: %w", g.ID, err))
		}
		if err := r.grants.Delete(ctx, g.ID); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete grant %s: %w", g.ID, err))
			continue
		}
		reaped++
		metrics.Reaped.Inc()
		if err := r.events.Publish(ctx, events.FileReaped, events.FileEvent{GrantID: g.ID, FileName: g.FileName, At: now.UTC()}); err != nil {
			r.log.Debug("publish reaped event failed", zap.String("grant_id", g.ID), zap.Error(err))
		}
	}
	return reaped, result.ErrorOrNil()
}
