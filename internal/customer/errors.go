package customer

import "errors"

var (
	// ErrNotFound indicates the customer does not exist in the organization.
	ErrNotFound = errors.New("customer not found")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid customer")
	// ErrDuplicate is returned when the code is already used in the organization.
	ErrDuplicate = errors.New("customer code already exists")
	// ErrInUse is returned when quotations still reference the customer.
	ErrInUse = errors.New("customer is referenced by quotations")
)
