package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBackend stores blobs in one bucket of an S3-compatible object
// store.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

func NewMinioBackend(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioBackend, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}
	return &MinioBackend{client: client, bucket: bucket}, nil
}

func (b *MinioBackend) Put(ctx context.Context, id string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, id, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", id, err)
	}
	return nil
}

func (b *MinioBackend) Get(ctx context.Context, id string) (io.ReadCloser, string, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("minio get %s: %w", id, err)
	}

	// GetObject is lazy; Stat forces the first round trip so absence
	// surfaces here instead of at read time.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("minio stat %s: %w", id, err)
	}
	return obj, info.ContentType, nil
}

func (b *MinioBackend) Remove(ctx context.Context, id string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove %s: %w", id, err)
	}
	return nil
}
