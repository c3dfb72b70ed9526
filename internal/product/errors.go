package product

import "errors"

var (
	// ErrNotFound indicates the product does not exist in the organization.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid product")
	// ErrDuplicate is returned when the SKU is already used in the organization.
	ErrDuplicate = errors.New("product sku already exists")
)
