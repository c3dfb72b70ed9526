package objectstore

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner issues time-limited URLs that read an object straight from the
// backend. Only remote stores implement it.
type Presigner interface {
	PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}

func inlineDisposition(fileName string) string {
	if fileName == "" {
		return "inline"
	}
	return mime.FormatMediaType("inline", map[string]string{"filename": fileName})
}

// PresignGet returns a signed GET URL for key.
func (s *MinIOStore) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", inlineDisposition(fileName))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return u.String(), nil
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignGet returns a signed GET URL for key.
func (s *S3Store) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("presign object %s: no presign client", key)
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(inlineDisposition(fileName)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return req.URL, nil
}
