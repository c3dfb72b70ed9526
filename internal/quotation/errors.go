package quotation

import "errors"

var (
	ErrNotFound     = errors.New("quotation not found")
	ErrInvalidInput = errors.New("invalid quotation")
	ErrDuplicate    = errors.New("quotation number already exists")
)
