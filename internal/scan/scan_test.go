package scan

import (
	"context"
	"errors"
	"io"
	"testing"

	clamd "github.com/dutchcoders/go-clamd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClamd struct {
	results []*clamd.ScanResult
	err     error
	got     []byte
}

func (f *fakeClamd) ScanStream(r io.Reader, _ chan bool) (chan *clamd.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(r)
	f.got = data
	ch := make(chan *clamd.ScanResult, len(f.results))
	for _, res := range f.results {
		ch <- res
	}
	close(ch)
	return ch, nil
}

func TestClamAVClean(t *testing.T) {
	fake := &fakeClamd{results: []*clamd.ScanResult{{Status: clamd.RES_OK}}}
	s := &ClamAV{client: fake}

	require.NoError(t, s.Scan(context.Background(), []byte("hello")))
	assert.Equal(t, []byte("hello"), fake.got)
}

func TestClamAVInfected(t *testing.T) {
	fake := &fakeClamd{results: []*clamd.ScanResult{{Status: clamd.RES_FOUND, Description: "Eicar-Test-Signature"}}}
	s := &ClamAV{client: fake}

	err := s.Scan(context.Background(), []byte("X5O!P%@AP"))
	require.ErrorIs(t, err, ErrInfected)
	assert.Contains(t, err.Error(), "Eicar")
}

func TestClamAVDaemonError(t *testing.T) {
	s := &ClamAV{client: &fakeClamd{err: errors.New("dial tcp: refused")}}

	err := s.Scan(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInfected))
}

func TestNoopAcceptsEverything(t *testing.T) {
	require.NoError(t, Noop{}.Scan(context.Background(), nil))
}
