package file

import (
	"context"
	"errors"
	"strings"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/logger"
	"github.com/abduss/backoffice/internal/metrics"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

type deleter interface {
	Delete(ctx context.Context, caller access.Caller, id string) error
}

// Reconciler removes files that a parent record stopped referencing.
// Failures are logged and never reach the parent mutation.
type Reconciler struct {
	files  deleter
	prefix string
	log    *zap.Logger
}

// NewReconciler builds a reconciler that parses references carrying prefix.
func NewReconciler(files deleter, prefix string, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{files: files, prefix: prefix, log: log}
}

// GrantID extracts the grant id from a file reference.
func (r *Reconciler) GrantID(url string) (string, bool) {
	return GrantIDFromURL(r.prefix, url)
}

// GrantIDFromURL strips prefix from url. References that do not carry the
// prefix, or carry nothing after it, yield no id.
func GrantIDFromURL(prefix, url string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Reconcile deletes the file behind oldURL when newURL no longer points at it.
func (r *Reconciler) Reconcile(ctx context.Context, caller access.Caller, oldURL, newURL *string) {
	if oldURL == nil {
		return
	}
	oldID, ok := r.GrantID(*oldURL)
	if !ok {
		return
	}
	if newURL != nil {
		if newID, ok := r.GrantID(*newURL); ok && newID == oldID {
			return
		}
	}
	if err := r.remove(ctx, caller, oldID); err != nil {
		logger.FromContext(ctx, r.log).Warn("reconcile: delete replaced file failed",
			zap.String("grant_id", oldID), zap.Error(err))
	}
}

// ReconcileSet deletes every file referenced in oldURLs that is absent from newURLs.
func (r *Reconciler) ReconcileSet(ctx context.Context, caller access.Caller, oldURLs, newURLs []string) {
	keep := make(map[string]struct{}, len(newURLs))
	for _, u := range newURLs {
		if id, ok := r.GrantID(u); ok {
			keep[id] = struct{}{}
		}
	}

	var result *multierror.Error
	seen := make(map[string]struct{}, len(oldURLs))
	for _, u := range oldURLs {
		id, ok := r.GrantID(u)
		if !ok {
			continue
		}
		if _, kept := keep[id]; kept {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := r.remove(ctx, caller, id); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.FromContext(ctx, r.log).Warn("reconcile: delete removed files failed",
			zap.Int("failures", len(result.Errors)), zap.Error(err))
	}
}

// remove deletes one file. A write rule that excludes the editor leaves the
// file in place; it is counted as an orphan since the reaper only collects
// unfulfilled grants.
func (r *Reconciler) remove(ctx context.Context, caller access.Caller, id string) error {
	err := r.files.Delete(ctx, caller, id)
	if errors.Is(err, ErrUnauthorized) {
		metrics.ReconcileOrphans.Inc()
		actor, _ := caller.Identity()
		logger.FromContext(ctx, r.log).Warn("reconcile: editor may not delete file, leaving it orphaned",
			zap.String("grant_id", id), zap.String("actor", actor))
		return nil
	}
	return err
}
