package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// S3Gateway implements Gateway against any S3-compatible endpoint via the
// minio-go client, for deployments that back the Object Store Gateway with
// a real object storage product instead of local disk.
type S3Gateway struct {
	client *minio.Client
	bucket string
}

// NewS3Gateway wraps an already-configured minio client (credentials and
// endpoint setup stay at the call site, the same way PGStore takes a
// pre-opened pool rather than owning connection setup).
func NewS3Gateway(client *minio.Client, bucket string) *S3Gateway {
	return &S3Gateway{client: client, bucket: bucket}
}

func (g *S3Gateway) Put(ctx context.Context, key string, r io.Reader) error {
	_, err := g.client.PutObject(ctx, g.bucket, key, r, -1, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (g *S3Gateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := g.client.GetObject(ctx, g.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return obj, nil
}

func (g *S3Gateway) DeleteAll(ctx context.Context, prefix string) error {
	objectsCh := g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	errCh := g.client.RemoveObjects(ctx, g.bucket, objectsCh, minio.RemoveObjectsOptions{})
	for rErr := range errCh {
		if rErr.Err != nil {
			return fmt.Errorf("delete object %q: %w", rErr.ObjectName, rErr.Err)
		}
	}
	return nil
}
