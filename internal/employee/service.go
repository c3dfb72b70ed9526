package employee

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/paging"
	"github.com/google/uuid"
)

const maxFieldLength = 200

type repository interface {
	List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Employee, int64, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (Employee, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, *string, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) (Employee, error)
}

type fileReconciler interface {
	Reconcile(ctx context.Context, caller access.Caller, oldURL, newURL *string)
}

// Service implements employee use cases.
type Service struct {
	repo  repository
	files fileReconciler
}

// NewService builds an employee service.
func NewService(repo repository, files fileReconciler) *Service {
	return &Service{repo: repo, files: files}
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, p paging.Params) (paging.Page[Employee], error) {
	items, total, err := s.repo.List(ctx, orgID, p)
	if err != nil {
		return paging.Page[Employee]{}, err
	}
	return paging.NewPage(items, p, total), nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (Employee, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create validates and stores a new employee.
func (s *Service) Create(ctx context.Context, caller access.Caller, in Input) (Employee, error) {
	orgID, err := organizationOf(caller)
	if err != nil {
		return Employee{}, err
	}
	if in, err = normalize(in); err != nil {
		return Employee{}, err
	}
	return s.repo.Create(ctx, build(uuid.New(), orgID, in))
}

// Update replaces an employee, releasing a replaced profile image after commit.
func (s *Service) Update(ctx context.Context, caller access.Caller, id uuid.UUID, in Input) (Employee, error) {
	orgID, err := organizationOf(caller)
	if err != nil {
		return Employee{}, err
	}
	if in, err = normalize(in); err != nil {
		return Employee{}, err
	}
	updated, previous, err := s.repo.Update(ctx, build(id, orgID, in))
	if err != nil {
		return Employee{}, err
	}
	s.files.Reconcile(ctx, caller, previous, updated.ImageURL)
	return updated, nil
}

// Delete removes an employee and its profile image.
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

func build(id, orgID uuid.UUID, in Input) Employee {
	return Employee{
		ID:             id,
		OrganizationID: orgID,
		Code:           in.Code,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		Position:       in.Position,
		ImageURL:       in.ImageURL,
	}
}

func normalize(in Input) (Input, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Position = strings.TrimSpace(in.Position)

	required := []struct{ name, value string }{
		{"code", in.Code},
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
	}
	for _, field := range required {
		if field.value == "" || len(field.value) > maxFieldLength {
			return Input{}, fmt.Errorf("%w: %s is required and must be at most %d characters", ErrInvalidInput, field.name, maxFieldLength)
		}
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return Input{}, fmt.Errorf("%w: email is malformed", ErrInvalidInput)
		}
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
