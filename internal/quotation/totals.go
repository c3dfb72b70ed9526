package quotation

import (
	"fmt"
	"math"
)

const (
	maxVATRate   = 10000
	maxQuantity  = 1_000_000
	maxUnitPrice = 1_000_000_000_000
)

// Totals holds the computed money fields of a quotation.
type Totals struct {
	Subtotal int64
	VAT      int64
	Total    int64
}

// Compute prices every line and derives subtotal, VAT and total. VAT is
// subtotal*rate/10000 rounded half up.
func Compute(lines []ItemInput, vatRate int) ([]Item, Totals, error) {
	if vatRate < 0 || vatRate > maxVATRate {
		return nil, Totals{}, fmt.Errorf("%w: vat_rate must be between 0 and %d basis points", ErrInvalidInput, maxVATRate)
	}

	items := make([]Item, 0, len(lines))
	var subtotal int64
	for i, line := range lines {
		if line.Quantity <= 0 || line.Quantity > maxQuantity {
			return nil, Totals{}, fmt.Errorf("%w: items[%d].quantity must be between 1 and %d", ErrInvalidInput, i, maxQuantity)
		}
		if line.UnitPrice < 0 || line.UnitPrice > maxUnitPrice {
			return nil, Totals{}, fmt.Errorf("%w: items[%d].unit_price is out of range", ErrInvalidInput, i)
		}
		amount := line.Quantity * line.UnitPrice
		if subtotal > math.MaxInt64-amount {
			return nil, Totals{}, fmt.Errorf("%w: subtotal overflows", ErrInvalidInput)
		}
		subtotal += amount
		items = append(items, Item{
			ProductID:   line.ProductID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      amount,
		})
	}

	if vatRate > 0 && subtotal > (math.MaxInt64-maxVATRate/2)/int64(vatRate) {
		return nil, Totals{}, fmt.Errorf("%w: vat overflows", ErrInvalidInput)
	}
	vat := (subtotal*int64(vatRate) + maxVATRate/2) / maxVATRate
	if subtotal > math.MaxInt64-vat {
		return nil, Totals{}, fmt.Errorf("%w: total overflows", ErrInvalidInput)
	}
	return items, Totals{Subtotal: subtotal, VAT: vat, Total: subtotal + vat}, nil
}
