package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/paging"
	"github.com/google/uuid"
)

const (
	maxSKULength  = 64
	maxNameLength = 200
)

type repository interface {
	List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Product, int64, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (Product, error)
	Create(ctx context.Context, pr Product) (Product, error)
	Update(ctx context.Context, pr Product) (Product, *string, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) (Product, error)
}

// fileReconciler releases the image a product stopped referencing.
type fileReconciler interface {
	Reconcile(ctx context.Context, caller access.Caller, oldURL, newURL *string)
}

// Service implements the product use cases.
type Service struct {
	repo  repository
	files fileReconciler
}

// NewService builds a product service.
func NewService(repo repository, files fileReconciler) *Service {
	return &Service{repo: repo, files: files}
}

// List returns one page of products.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, p paging.Params) (paging.Page[Product], error) {
	items, total, err := s.repo.List(ctx, orgID, p)
	if err != nil {
		return paging.Page[Product]{}, err
	}
	return paging.NewPage(items, p, total), nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (Product, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create validates and stores a new product in the caller's organization.
func (s *Service) Create(ctx context.Context, caller access.Caller, in Input) (Product, error) {
	orgID, err := organizationOf(caller)
	if err != nil {
		return Product{}, err
	}
	in, err = normalize(in)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, build(uuid.New(), orgID, in))
}

// Update replaces a product. The previous image is released once the new
// row is committed.
func (s *Service) Update(ctx context.Context, caller access.Caller, id uuid.UUID, in Input) (Product, error) {
	orgID, err := organizationOf(caller)
	if err != nil {
		return Product{}, err
	}
	in, err = normalize(in)
	if err != nil {
		return Product{}, err
	}
	updated, previous, err := s.repo.Update(ctx, build(id, orgID, in))
	if err != nil {
		return Product{}, err
	}
	s.files.Reconcile(ctx, caller, previous, updated.ImageURL)
	return updated, nil
}

// Delete removes a product together with its image.
func (s *Service) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	orgID, err := organizationOf(caller)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, orgID, id)
	if err != nil {
		return err
	}
	s.files.Reconcile(ctx, caller, deleted.ImageURL, nil)
	return nil
}

func build(id, orgID uuid.UUID, in Input) Product {
	return Product{
		ID:             id,
		OrganizationID: orgID,
		SKU:            in.SKU,
		Name:           in.Name,
		Description:    in.Description,
		Unit:           in.Unit,
		UnitPrice:      in.UnitPrice,
		ImageURL:       in.ImageURL,
	}
}

func normalize(in Input) (Input, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.TrimSpace(in.Unit)

	switch {
	case in.SKU == "" || len(in.SKU) > maxSKULength:
		return Input{}, fmt.Errorf("%w: sku is required and must be at most %d characters", ErrInvalidInput, maxSKULength)
	case in.Name == "" || len(in.Name) > maxNameLength:
		return Input{}, fmt.Errorf("%w: name is required and must be at most %d characters", ErrInvalidInput, maxNameLength)
	case in.UnitPrice < 0:
		return Input{}, fmt.Errorf("%w: unit_price must not be negative", ErrInvalidInput)
	}
	if in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) == "" {
		in.ImageURL = nil
	}
	return in, nil
}

func organizationOf(caller access.Caller) (uuid.UUID, error) {
	id, err := uuid.Parse(caller.OrganizationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: caller has no organization", ErrInvalidInput)
	}
	return id, nil
}
