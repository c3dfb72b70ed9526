package file

import (
	"time"

	"github.com/abduss/backoffice/internal/access"
)

const (
	defaultFileType       = "application/octet-stream"
	defaultDownloadURLTTL = 15 * time.Minute
)

// Descriptor is the client's declaration of a file it intends to upload.
type Descriptor struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// Options tunes the protocol.
type Options struct {
	// PublicPrefix is prepended to a grant id to build the URL stored on parent records.
	PublicPrefix   string
	MaxUploadBytes int64
	MaxBatch       int
	// RequireAuth makes Presign reject anonymous callers.
	RequireAuth bool
	// DefaultPolicy applies when Presign is called without one.
	DefaultPolicy access.Policy
	// DownloadURLTTL bounds direct download URLs issued by DownloadURL.
	DownloadURLTTL time.Duration
}
