// Package scan inspects uploaded bytes before they reach the object store.
package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	clamd "github.com/dutchcoders/go-clamd"
)

// ErrInfected is returned when the scanner flags the content.
var ErrInfected = errors.New("content rejected by scanner")

// Scanner checks a payload and returns ErrInfected when it must be refused.
type Scanner interface {
	Scan(ctx context.Context, data []byte) error
}

// Noop accepts everything. It is used when no scanner address is configured.
type Noop struct{}

// Scan always succeeds.
func (Noop) Scan(context.Context, []byte) error { return nil }

type streamScanner interface {
	ScanStream(r io.Reader, abort chan bool) (chan *clamd.ScanResult, error)
}

// ClamAV streams payloads to a clamd daemon.
type ClamAV struct {
	client streamScanner
}

// NewClamAV connects lazily to the clamd daemon at address, e.g. tcp://clamav:3310.
func NewClamAV(address string) *ClamAV {
	return &ClamAV{client: clamd.NewClamd(address)}
}

// Scan sends data over INSTREAM and inspects every result line.
func (c *ClamAV) Scan(ctx context.Context, data []byte) error {
	abort := make(chan bool)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			close(abort)
		case <-done:
		}
	}()

	results, err := c.client.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("clamav scan: %w", err)
	}

	var scanErr error
	for res := range results {
		switch res.Status {
		case clamd.RES_FOUND:
			scanErr = fmt.Errorf("%w: %s", ErrInfected, res.Description)
		case clamd.RES_ERROR, clamd.RES_PARSE_ERROR:
			if scanErr == nil {
				scanErr = fmt.Errorf("clamav scan: %s", res.Raw)
			}
		}
	}
	if scanErr != nil {
		return scanErr
	}
	return ctx.Err()
}
