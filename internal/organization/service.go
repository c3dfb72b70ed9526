package organization

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

const maxNameLength = 200

type repository interface {
	Get(ctx context.Context, id uuid.UUID) (Organization, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

// Service orchestrates organization operations.
type Service struct {
	repo repository
}

// NewService constructs an organization service.
func NewService(repo repository) *Service {
	return &Service{repo: repo}
}

// Get returns the organization.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	return s.repo.Get(ctx, id)
}

// Rename validates and applies a new name, returning the updated organization.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return Organization{}, ErrInvalidName
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return Organization{}, err
	}
	return s.repo.Get(ctx, id)
}
