package bill

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig locates an S3-compatible bucket
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStorage implements the Storage interface on an S3-compatible object store
type MinioStorage struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
}

// NewMinioStorage creates a MinioStorage for cfg.Bucket
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &MinioStorage{
		client:  client,
		bucket:  cfg.Bucket,
		timeout: 30 * time.Second,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (m *MinioStorage) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

// Save uploads a file to the bucket
func (m *MinioStorage) Save(name string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	name = path.Base(name)
	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: ContentTypeFor(name),
	})
	if err != nil {
		return "", fmt.Errorf("uploading file: %w", err)
	}
	return name, nil
}

// Get downloads a file from the bucket
func (m *MinioStorage) Get(name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	obj, err := m.client.GetObject(ctx, m.bucket, path.Base(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("reading file %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from the bucket
func (m *MinioStorage) Delete(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.client.RemoveObject(ctx, m.bucket, path.Base(name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
