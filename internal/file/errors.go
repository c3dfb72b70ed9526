package file

import "errors"

var (
	// ErrNotFound covers missing grants, missing objects, and grants that can
	// no longer accept an upload (fulfilled or expired).
	ErrNotFound = errors.New("file not found")
	// ErrUnauthorized signals that the caller does not satisfy the grant's rule,
	// or that an identity is required and absent.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation signals malformed input.
	ErrValidation = errors.New("invalid file request")
	// ErrRejected signals that the upload scanner refused the content.
	ErrRejected = errors.New("file rejected")
	// ErrDirectUnsupported means the object store cannot issue direct URLs.
	ErrDirectUnsupported = errors.New("direct download not supported")
)
