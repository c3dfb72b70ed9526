package quotation

import (
	"context"
	"fmt"
	"strings"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/paging"
	"github.com/google/uuid"
)

const (
	maxNumberLength = 64
	maxItems        = 200
)

type repository interface {
	List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Quotation, int64, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (Quotation, error)
	Create(ctx context.Context, q Quotation) (Quotation, error)
	Update(ctx context.Context, q Quotation) (Quotation, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// customerDirectory answers whether a customer belongs to an organization.
type customerDirectory interface {
	Exists(ctx context.Context, orgID, id uuid.UUID) (bool, error)
}

// Service implements quotation use cases.
type Service struct {
	repo      repository
	customers customerDirectory
}

// NewService builds a quotation service.
func NewService(repo repository, customers customerDirectory) *Service {
	return &Service{repo: repo, customers: customers}
}

// List returns one page of quotations.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, p paging.Params) (paging.Page[Quotation], error) {
	items, total, err := s.repo.List(ctx, orgID, p)
	if err != nil {
		return paging.Page[Quotation]{}, err
	}
	return paging.NewPage(items, p, total), nil
}

// Get returns a quotation with its items.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (Quotation, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create prices and stores a new quotation.
func (s *Service) Create(ctx context.Context, caller access.Caller, in Input) (Quotation, error) {
	q, err := s.prepare(ctx, caller, uuid.New(), in)
	if err != nil {
		return Quotation{}, err
	}
	return s.repo.Create(ctx, q)
}

// Update reprices and replaces a quotation with its items.
func (s *Service) Update(ctx context.Context, caller access.Caller, id uuid.UUID, in Input) (Quotation, error) {
	q, err := s.prepare(ctx, caller, id, in)
	if err != nil {
		return Quotation{}, err
	}
	return s.repo.Update(ctx, q)
}

// Delete removes a quotation.
func (s *Service) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	orgID, err := organizationOf(caller)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, orgID, id)
}

func (s *Service) prepare(ctx context.Context, caller access.Caller, id uuid.UUID, in Input) (Quotation, error) {
	orgID, err := organizationOf(caller)
	if err != nil {
		return Quotation{}, err
	}

	in.Number = strings.TrimSpace(in.Number)
	in.Note = strings.TrimSpace(in.Note)
	if in.Status == "" {
		in.Status = StatusDraft
	}
	vatRate := DefaultVATRate
	if in.VATRate != nil {
		vatRate = *in.VATRate
	}

	switch {
	case in.Number == "" || len(in.Number) > maxNumberLength:
		return Quotation{}, fmt.Errorf("%w: number is required and must be at most %d characters", ErrInvalidInput, maxNumberLength)
	case in.CustomerID == uuid.Nil:
		return Quotation{}, fmt.Errorf("%w: customer_id is required", ErrInvalidInput)
	case !in.Status.Valid():
		return Quotation{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	case in.IssueDate.IsZero() || in.ValidUntil.IsZero():
		return Quotation{}, fmt.Errorf("%w: issue_date and valid_until are required", ErrInvalidInput)
	case in.ValidUntil.Before(in.IssueDate.Time):
		return Quotation{}, fmt.Errorf("%w: valid_until must not precede issue_date", ErrInvalidInput)
	case len(in.Items) > maxItems:
		return Quotation{}, fmt.Errorf("%w: at most %d items", ErrInvalidInput, maxItems)
	}

	lines := make([]ItemInput, 0, len(in.Items))
	for i, line := range in.Items {
		line.Description = strings.TrimSpace(line.Description)
		if line.Description == "" {
			return Quotation{}, fmt.Errorf("%w: items[%d].description is required", ErrInvalidInput, i)
		}
		lines = append(lines, line)
	}
	items, totals, err := Compute(lines, vatRate)
	if err != nil {
		return Quotation{}, err
	}

	ok, err := s.customers.Exists(ctx, orgID, in.CustomerID)
	if err != nil {
		return Quotation{}, err
	}
	if !ok {
		return Quotation{}, fmt.Errorf("%w: customer does not belong to the organization", ErrInvalidInput)
	}

	return Quotation{
		ID:             id,
		OrganizationID: orgID,
		CustomerID:     in.CustomerID,
		Number:         in.Number,
		IssueDate:      in.IssueDate,
		ValidUntil:     in.ValidUntil,
		Status:         in.Status,
		Note:           in.Note,
		VATRate:        vatRate,
		Subtotal:       totals.Subtotal,
		VAT:            totals.VAT,
		Total:          totals.Total,
		Items:          items,
	}, nil
}

func organizationOf(caller access.Caller) (uuid.UUID, error) {
	id, err := uuid.Parse(caller.OrganizationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: caller has no organization", ErrInvalidInput)
	}
	return id, nil
}
