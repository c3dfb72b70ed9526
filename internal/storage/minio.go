package storage

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/abduss/backoffice/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultMinIOPort = "9000"

type bucketMaker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

// OpenMinIO connects to the configured MinIO endpoint and makes sure the
// attachment bucket exists. Bucket calls are bounded by the object store
// timeout.
func OpenMinIO(ctx context.Context, cfg config.ObjectStoreConfig) (*minio.Client, error) {
	endpoint, secure := minioEndpoint(cfg.MinIO.Endpoint, cfg.MinIO.UseSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.MinIO.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg); err != nil {
		return nil, err
	}
	return client, nil
}

// minioEndpoint strips an http(s) scheme and adds the MinIO API port when the
// host has none. An https scheme forces TLS.
func minioEndpoint(raw string, useSSL bool) (string, bool) {
	endpoint := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	if _, _, err := net.SplitHostPort(endpoint); err != nil {
		endpoint = net.JoinHostPort(endpoint, defaultMinIOPort)
	}
	return endpoint, useSSL
}

func ensureBucket(ctx context.Context, client bucketMaker, cfg config.ObjectStoreConfig) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	bucket := cfg.MinIO.Bucket
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.MinIO.Region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	return nil
}
