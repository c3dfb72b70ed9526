package product

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable item. Prices are in minor currency units.
type Product struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Unit           string    `json:"unit"`
	UnitPrice      int64     `json:"unit_price"`
	ImageURL       *string   `json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Input is the writable part of a product.
type Input struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	UnitPrice   int64   `json:"unit_price"`
	ImageURL    *string `json:"image_url"`
}
