package grant

import "errors"

var (
	// ErrNotFound signals that no ledger row exists for the id.
	ErrNotFound = errors.New("grant not found")
	// ErrNotFulfillable is returned by MarkFulfilled when the grant is already
	// fulfilled, expired or gone.
	ErrNotFulfillable = errors.New("grant not fulfillable")
)
