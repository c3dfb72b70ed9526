package customer

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/abduss/backoffice/internal/access"
	"github.com/abduss/backoffice/internal/paging"
	"github.com/google/uuid"
)

const (
	maxFieldLength = 200
	maxChildren    = 50
)

type repository interface {
	List(ctx context.Context, orgID uuid.UUID, p paging.Params) ([]Customer, int64, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, []string, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) ([]string, error)
}

// attachmentReconciler releases attachments dropped from a customer.
type attachmentReconciler interface {
	ReconcileSet(ctx context.Context, caller access.Caller, oldURLs, newURLs []string)
}

// Service implements customer use cases.
type Service struct {
	repo  repository
	files attachmentReconciler
}

// NewService builds a customer service.
func NewService(repo repository, files attachmentReconciler) *Service {
	return &Service{repo: repo, files: files}
}

// List returns one page of customers.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, p paging.Params) (paging.Page[Customer], error) {
	items, total, err := s.repo.List(ctx, orgID, p)
	if err != nil {
		return paging.Page[Customer]{}, err
	}
	return paging.NewPage(items, p, total), nil
}

// Get returns a customer with its child collections.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (Customer, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create validates the form and stores the customer with its children.
func (s *Service) Create(ctx context.Context, caller access.Caller, in Input) (Customer, error) {
	orgID, err := organizationOf(caller)
	if err != nil {
		return Customer{}, err
	}
	if in, err = normalize(in); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, build(uuid.New(), orgID, in))
}

// Update replaces the customer and its children. Attachments that are no
// longer referenced are released after the transaction commits.
func (s *Service) Update(ctx context.Context, caller access.Caller, id uuid.UUID, in Input) (Customer, error) {
	orgID, err := organizationOf(caller)
	if err != nil {
		return Customer{}, err
	}
	if in, err = normalize(in); err != nil {
		return Customer{}, err
	}
	updated, previous, err := s.repo.Update(ctx, build(id, orgID, in))
	if err != nil {
		return Customer{}, err
	}
	s.files.ReconcileSet(ctx, caller, previous, updated.AttachmentURLs())
	return updated, nil
}

// Delete removes the customer and releases every attachment it held.
func (s *Service) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	orgID, err := organizationOf(caller)
	if err != nil {
		return err
	}
	urls, err := s.repo.Delete(ctx, orgID, id)
	if err != nil {
		return err
	}
	s.files.ReconcileSet(ctx, caller, urls, nil)
	return nil
}

func build(id, orgID uuid.UUID, in Input) Customer {
	return Customer{
		ID:             id,
		OrganizationID: orgID,
		Code:           in.Code,
		Name:           in.Name,
		TaxID:          in.TaxID,
		Branch:         in.Branch,
		Address:        in.Address,
		Email:          in.Email,
		Phone:          in.Phone,
		Contacts:       in.Contacts,
		BankAccounts:   in.BankAccounts,
		Attachments:    in.Attachments,
	}
}

func normalize(in Input) (Input, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.TaxID = strings.TrimSpace(in.TaxID)
	in.Branch = strings.TrimSpace(in.Branch)
	in.Address = strings.TrimSpace(in.Address)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Code == "" || len(in.Code) > maxFieldLength {
		return Input{}, fmt.Errorf("%w: code is required and must be at most %d characters", ErrInvalidInput, maxFieldLength)
	}
	if in.Name == "" || len(in.Name) > maxFieldLength {
		return Input{}, fmt.Errorf("%w: name is required and must be at most %d characters", ErrInvalidInput, maxFieldLength)
	}
	if err := checkEmail(in.Email); err != nil {
		return Input{}, err
	}
	if len(in.Contacts) > maxChildren || len(in.BankAccounts) > maxChildren || len(in.Attachments) > maxChildren {
		return Input{}, fmt.Errorf("%w: at most %d entries per collection", ErrInvalidInput, maxChildren)
	}

	contacts := make([]Contact, 0, len(in.Contacts))
	for i, c := range in.Contacts {
		c.Name = strings.TrimSpace(c.Name)
		c.Email = strings.ToLower(strings.TrimSpace(c.Email))
		c.Phone = strings.TrimSpace(c.Phone)
		c.Position = strings.TrimSpace(c.Position)
		if c.Name == "" {
			return Input{}, fmt.Errorf("%w: contacts[%d].name is required", ErrInvalidInput, i)
		}
		if err := checkEmail(c.Email); err != nil {
			return Input{}, err
		}
		contacts = append(contacts, c)
	}
	in.Contacts = contacts

	accounts := make([]BankAccount, 0, len(in.BankAccounts))
	for i, a := range in.BankAccounts {
		a.BankName = strings.TrimSpace(a.BankName)
		a.AccountName = strings.TrimSpace(a.AccountName)
		a.AccountNumber = strings.TrimSpace(a.AccountNumber)
		a.Branch = strings.TrimSpace(a.Branch)
		if a.BankName == "" || a.AccountName == "" || a.AccountNumber == "" {
			return Input{}, fmt.Errorf("%w: bank_accounts[%d] needs bank_name, account_name and account_number", ErrInvalidInput, i)
		}
		accounts = append(accounts, a)
	}
	in.BankAccounts = accounts

	attachments := make([]Attachment, 0, len(in.Attachments))
	for i, a := range in.Attachments {
		a.FileURL = strings.TrimSpace(a.FileURL)
		a.FileName = strings.TrimSpace(a.FileName)
		if a.FileURL == "" {
			return Input{}, fmt.Errorf("%w: attachments[%d].file_url is required", ErrInvalidInput, i)
		}
		attachments = append(attachments, a)
	}
	in.Attachments = attachments
	return in, nil
}

func checkEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: %q is not a valid email", ErrInvalidInput, email)
	}
	return nil
}

func organizationOf(caller access.Caller) (uuid.UUID, error) {
	id, err := uuid.Parse(caller.OrganizationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: caller has no organization", ErrInvalidInput)
	}
	return id, nil
}
