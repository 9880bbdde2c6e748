package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const readOnlyPolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Effect": "Allow",
		"Principal": {"AWS": ["*"]},
		"Action": ["s3:GetObject"],
		"Resource": ["arn:aws:s3:::%s/*"]
	}]
}`

// MinIOStorage stores objects in one public-read bucket.
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOClient connects to a MinIO (or any S3-compatible) endpoint.
func NewMinIOClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	return client, nil
}

// NewMinIOStorage makes sure bucket exists and is anonymously readable.
// Object URLs are built as publicURL/bucket/key.
func NewMinIOStorage(ctx context.Context, client *minio.Client, bucket, publicURL string) (*MinIOStorage, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	if err := client.SetBucketPolicy(ctx, bucket, fmt.Sprintf(readOnlyPolicy, bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}
	return &MinIOStorage{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Put uploads data and returns its public URL.
func (s *MinIOStorage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return s.URL(key), nil
}

// Remove deletes the object stored under key.
func (s *MinIOStorage) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// URL is the public address of key.
func (s *MinIOStorage) URL(key string) string {
	return s.publicURL + "/" + s.bucket + "/" + key
}
