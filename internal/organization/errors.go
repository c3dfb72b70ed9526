package organization

import "errors"

var (
	// ErrNotFound indicates the organization does not exist.
	ErrNotFound = errors.New("organization not found")
	// ErrInvalidName is returned for blank or oversized names.
	ErrInvalidName = errors.New("invalid organization name")
)
