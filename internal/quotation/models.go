package quotation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the commercial state of a quotation.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// DefaultVATRate is 7% expressed in basis points.
const DefaultVATRate = 700

const dateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*raw)
	if err != nil {
		return fmt.Errorf("date must be formatted as %s", dateLayout)
	}
	*d = parsed
	return nil
}

// Quotation is a priced offer to a customer. Money is in minor units.
type Quotation struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	CustomerName   string    `json:"customer_name,omitempty"`
	Number         string    `json:"number"`
	IssueDate      Date      `json:"issue_date"`
	ValidUntil     Date      `json:"valid_until"`
	Status         Status    `json:"status"`
	Note           string    `json:"note"`
	VATRate        int       `json:"vat_rate"`
	Subtotal       int64     `json:"subtotal"`
	VAT            int64     `json:"vat"`
	Total          int64     `json:"total"`
	Items          []Item    `json:"items,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Item is one priced line of a quotation.
type Item struct {
	ProductID   *uuid.UUID `json:"product_id"`
	Description string     `json:"description"`
	Quantity    int64      `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	Amount      int64      `json:"amount"`
}

// Input is the quotation form. Amounts and totals are always computed by
// the server; VATRate defaults to DefaultVATRate when omitted.
type Input struct {
	CustomerID uuid.UUID   `json:"customer_id"`
	Number     string      `json:"number"`
	IssueDate  Date        `json:"issue_date"`
	ValidUntil Date        `json:"valid_until"`
	Status     Status      `json:"status"`
	Note       string      `json:"note"`
	VATRate    *int        `json:"vat_rate"`
	Items      []ItemInput `json:"items"`
}

// ItemInput is one line of the quotation form.
type ItemInput struct {
	ProductID   *uuid.UUID `json:"product_id"`
	Description string     `json:"description"`
	Quantity    int64      `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
}
