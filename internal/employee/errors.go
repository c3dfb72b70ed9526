package employee

import "errors"

var (
	ErrNotFound     = errors.New("employee not found")
	ErrInvalidInput = errors.New("invalid employee")
	ErrDuplicate    = errors.New("employee code already exists")
)
