package grant

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/abduss/backoffice/internal/access"
	"github.com/google/uuid"
)

// Grant is a ledger row reserving one object key for exactly one upload.
type Grant struct {
	ID          string
	FileName    string
	FileType    string
	FileSize    int64
	IssuedAt    time.Time
	ExpiredAt   time.Time
	IssuedBy    *string
	UploadedAt  *time.Time
	ReadAccess  access.Rule
	WriteAccess access.Rule
}

// Fulfilled reports whether the upload step has completed.
func (g Grant) Fulfilled() bool {
	return g.UploadedAt != nil
}

// Expired reports whether now is past the grant's expiry.
func (g Grant) Expired(now time.Time) bool {
	return now.After(g.ExpiredAt)
}

// Input describes one grant to issue.
type Input struct {
	FileName    string
	FileType    string
	FileSize    int64
	IssuedBy    *string
	ReadAccess  access.Rule
	WriteAccess access.Rule
}

const idTimeLayout = "20060102T150405Z"

// NewID builds a grant id of the form {uuid}-{timestamp}.{extension}. The
// result is safe to use both as an object key and as a URL path segment.
func NewID(fileName string, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", uuid.NewString(), at.UTC().Format(idTimeLayout), extension(fileName))
}

func extension(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.TrimSpace(fileName)), "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "bin"
	}
	return b.String()
}
