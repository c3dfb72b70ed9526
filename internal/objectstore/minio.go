package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
)

// MinIOStore adapts minio.Client to Store.
type MinIOStore struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
}

// NewMinIOStore constructs an adapter writing into bucket.
func NewMinIOStore(client *minio.Client, bucket string, timeout time.Duration) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket, timeout: timeout}
}

func (s *MinIOStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *MinIOStore) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, translateMinIOError(key, err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, ObjectInfo{}, translateMinIOError(key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, ObjectInfo{}, translateMinIOError(key, err)
	}

	return data, ObjectInfo{Key: key, Size: stat.Size, ContentType: stat.ContentType}, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isMinIONotFound(err) {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func translateMinIOError(key string, err error) error {
	if isMinIONotFound(err) {
		return ErrObjectNotFound
	}
	return fmt.Errorf("get object %s: %w", key, err)
}

func isMinIONotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
