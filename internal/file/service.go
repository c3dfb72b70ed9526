package file

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/events"
	"github.com/abduss/backoffice/internal/grant"
	"github.com/abduss/backoffice/internal/logger"
	"github.com/abduss/backoffice/internal/metrics"
	"github.com/abduss/backoffice/internal/objectstore"
	"github.com/abduss/backoffice/internal/scan"
	"go.uber.org/zap"
)

type ledger interface {
	Create(ctx context.Context, inputs []grant.Input) ([]string, error)
	FindByID(ctx context.Context, id string) (grant.Grant, error)
	MarkFulfilled(ctx context.Context, id string) (time.Time, error)
	Release(ctx context.Context, id string, claimedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type authorizer interface {
	Authorize(rule access.Rule, caller access.Caller) bool
}

// Service implements the presign, upload, fetch and delete protocol.
type Service struct {
	grants  ledger
	store   objectstore.Store
	access  authorizer
	scanner scan.Scanner
	events  events.Publisher
	log     *zap.Logger
	opts    Options
	now     func() time.Time
}

// NewService constructs a file service. Scanning and event publishing are
// disabled until UseScanner and UsePublisher are called.
func NewService(grants ledger, store objectstore.Store, evaluator authorizer, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DefaultPolicy == nil {
		opts.DefaultPolicy = access.PublicReadOwnerWritePolicy
	}
	return &Service{
		grants:  grants,
		store:   store,
		access:  evaluator,
		scanner: scan.Noop{},
		events:  events.Noop{},
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

// UseScanner enables content scanning on upload.
func (s *Service) UseScanner(sc scan.Scanner) {
	if sc != nil {
		s.scanner = sc
	}
}

// UsePublisher enables lifecycle events.
func (s *Service) UsePublisher(p events.Publisher) {
	if p != nil {
		s.events = p
	}
}

// PublicURL returns the reference stored on parent records for a grant id.
func (s *Service) PublicURL(id string) string {
	return s.opts.PublicPrefix + id
}

// Presign issues one grant per descriptor, all or nothing, and returns the ids
// in request order. A nil policy selects the configured default.
func (s *Service) Presign(ctx context.Context, caller access.Caller, files []Descriptor, policy access.Policy) ([]string, error) {
	identity, ok := caller.Identity()
	if s.opts.RequireAuth && !ok {
		return nil, ErrUnauthorized
	}
	if err := s.validateDescriptors(files); err != nil {
		return nil, err
	}
	if policy == nil {
		policy = s.opts.DefaultPolicy
	}

	var issuedBy *string
	if ok {
		issuedBy = &identity
	}

	inputs := make([]grant.Input, 0, len(files))
	for _, f := range files {
		read, write := policy(caller)
		fileType := strings.TrimSpace(f.FileType)
		if fileType == "" {
			fileType = defaultFileType
		}
		inputs = append(inputs, grant.Input{
			FileName:    strings.TrimSpace(f.FileName),
			FileType:    fileType,
			FileSize:    f.FileSize,
			IssuedBy:    issuedBy,
			ReadAccess:  read,
			WriteAccess: write,
		})
	}

	ids, err := s.grants.Create(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("issue grants: %w", err)
	}
	metrics.GrantsIssued.Add(float64(len(ids)))
	return ids, nil
}

func (s *Service) validateDescriptors(files []Descriptor) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one file is required", ErrValidation)
	}
	if s.opts.MaxBatch > 0 && len(files) > s.opts.MaxBatch {
		return fmt.Errorf("%w: at most %d files per request", ErrValidation, s.opts.MaxBatch)
	}
	for i, f := range files {
		if strings.TrimSpace(f.FileName) == "" {
			return fmt.Errorf("%w: files[%d].fileName is required", ErrValidation, i)
		}
		if f.FileSize < 0 {
			return fmt.Errorf("%w: files[%d].fileSize must not be negative", ErrValidation, i)
		}
		if s.opts.MaxUploadBytes > 0 && f.FileSize > s.opts.MaxUploadBytes {
			return fmt.Errorf("%w: files[%d] exceeds %d bytes", ErrValidation, i, s.opts.MaxUploadBytes)
		}
	}
	return nil
}

// Upload claims a pending grant and stores data under it. A failed store
// releases the claim. It returns the public URL of the stored file.
func (s *Service) Upload(ctx context.Context, caller access.Caller, id string, data []byte) (url string, err error) {
	defer func() { metrics.Uploads.WithLabelValues(resultLabel(err)).Inc() }()

	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty body", ErrValidation)
	}
	if s.opts.MaxUploadBytes > 0 && int64(len(data)) > s.opts.MaxUploadBytes {
		return "", fmt.Errorf("%w: body exceeds %d bytes", ErrValidation, s.opts.MaxUploadBytes)
	}

	g, err := s.lookup(ctx, id)
	if err != nil {
		return "", err
	}
	if g.Fulfilled() || g.Expired(s.now()) {
		return "", ErrNotFound
	}
	if !s.access.Authorize(g.WriteAccess, caller) {
		return "", ErrUnauthorized
	}

	if err := s.scanner.Scan(ctx, data); err != nil {
		if errors.Is(err, scan.ErrInfected) {
			logger.FromContext(ctx, s.log).Warn("upload rejected by scanner", zap.String("grant_id", id), zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return "", fmt.Errorf("scan upload: %w", err)
	}

	// Only the claim winner writes the object.
	claimedAt, err := s.grants.MarkFulfilled(ctx, g.ID)
	if err != nil {
		if errors.Is(err, grant.ErrNotFulfillable) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("mark grant fulfilled: %w", err)
	}

	if err := s.store.Put(ctx, g.ID, g.FileType, data); err != nil {
		if relErr := s.grants.Release(context.WithoutCancel(ctx), g.ID, claimedAt); relErr != nil {
			logger.FromContext(ctx, s.log).Error("release grant claim after failed put",
				zap.String("grant_id", g.ID), zap.Error(relErr))
		}
		return "", fmt.Errorf("store object: %w", err)
	}

	actor, _ := caller.Identity()
	s.publish(ctx, events.FileUploaded, events.FileEvent{
		GrantID:  g.ID,
		FileName: g.FileName,
		FileType: g.FileType,
		FileSize: int64(len(data)),
		Actor:    actor,
		At:       s.now().UTC(),
	})
	return s.PublicURL(g.ID), nil
}

// Fetch returns the stored bytes and the grant describing them. Expiry is not
// checked.
func (s *Service) Fetch(ctx context.Context, caller access.Caller, id string) (data []byte, g grant.Grant, err error) {
	defer func() { metrics.Fetches.WithLabelValues(resultLabel(err)).Inc() }()

	g, err = s.lookup(ctx, id)
	if err != nil {
		return nil, grant.Grant{}, err
	}
	if !s.access.Authorize(g.ReadAccess, caller) {
		return nil, grant.Grant{}, ErrUnauthorized
	}

	data, info, err := s.store.Get(ctx, g.ID)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, grant.Grant{}, ErrNotFound
		}
		return nil, grant.Grant{}, fmt.Errorf("fetch object: %w", err)
	}
	if g.FileType == "" {
		g.FileType = info.ContentType
	}
	return data, g, nil
}

// DownloadURL authorizes a read like Fetch and returns a short-lived URL
// served by the object store itself. Pending grants have nothing to serve.
func (s *Service) DownloadURL(ctx context.Context, caller access.Caller, id string) (u string, err error) {
	presigner, ok := s.store.(objectstore.Presigner)
	if !ok {
		return "", ErrDirectUnsupported
	}
	defer func() { metrics.Fetches.WithLabelValues(resultLabel(err)).Inc() }()

	g, err := s.lookup(ctx, id)
	if err != nil {
		return "", err
	}
	if !g.Fulfilled() {
		return "", ErrNotFound
	}
	if !s.access.Authorize(g.ReadAccess, caller) {
		return "", ErrUnauthorized
	}

	ttl := s.opts.DownloadURLTTL
	if ttl <= 0 {
		ttl = defaultDownloadURLTTL
	}
	u, err = presigner.PresignGet(ctx, g.ID, g.FileName, ttl)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u, nil
}

// Delete removes the object and its grant. A missing grant is treated as
// already deleted. The object delete is best effort; the ledger row is
// removed regardless.
func (s *Service) Delete(ctx context.Context, caller access.Caller, id string) (err error) {
	defer func() { metrics.Deletes.WithLabelValues(resultLabel(err)).Inc() }()

	g, err := s.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !s.access.Authorize(g.WriteAccess, caller) {
		return ErrUnauthorized
	}

	if err := s.store.Delete(ctx, g.ID); err != nil {
		logger.FromContext(ctx, s.log).Warn("delete object failed, removing grant anyway",
			zap.String("grant_id", g.ID), zap.Error(err))
	}
	if err := s.grants.Delete(ctx, g.ID); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}

	actor, _ := caller.Identity()
	s.publish(ctx, events.FileDeleted, events.FileEvent{GrantID: g.ID, FileName: g.FileName, Actor: actor, At: s.now().UTC()})
	return nil
}

func (s *Service) lookup(ctx context.Context, id string) (grant.Grant, error) {
	if strings.TrimSpace(id) == "" {
		return grant.Grant{}, ErrNotFound
	}
	g, err := s.grants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, grant.ErrNotFound) {
			return grant.Grant{}, ErrNotFound
		}
		return grant.Grant{}, fmt.Errorf("lookup grant: %w", err)
	}
	return g, nil
}

func (s *Service) publish(ctx context.Context, name string, ev events.FileEvent) {
	if err := s.events.Publish(ctx, name, ev); err != nil {
		logger.FromContext(ctx, s.log).Warn("publish file event failed",
			zap.String("event", name), zap.String("grant_id", ev.GrantID), zap.Error(err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrRejected):
		return "rejected"
	default:
		return "error"
	}
}
