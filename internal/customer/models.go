package customer

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a billing party together with its child collections.
type Customer struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Code           string        `json:"code"`
	Name           string        `json:"name"`
	TaxID          string        `json:"tax_id"`
	Branch         string        `json:"branch"`
	Address        string        `json:"address"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone"`
	Contacts       []Contact     `json:"contacts,omitempty"`
	BankAccounts   []BankAccount `json:"bank_accounts,omitempty"`
	Attachments    []Attachment  `json:"attachments,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Contact is a person reachable at the customer.
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
}

// BankAccount is where the customer pays from or is paid to.
type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Branch        string `json:"branch"`
}

// Attachment references an uploaded file by its public URL.
type Attachment struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
}

// Input is the form submitted on create and update. Child collections
// replace the stored ones wholesale.
type Input struct {
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	TaxID        string        `json:"tax_id"`
	Branch       string        `json:"branch"`
	Address      string        `json:"address"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone"`
	Contacts     []Contact     `json:"contacts"`
	BankAccounts []BankAccount `json:"bank_accounts"`
	Attachments  []Attachment  `json:"attachments"`
}

// AttachmentURLs lists the file references held by the customer.
func (c Customer) AttachmentURLs() []string {
	urls := make([]string, 0, len(c.Attachments))
	for _, a := range c.Attachments {
		urls = append(urls, a.FileURL)
	}
	return urls
}
