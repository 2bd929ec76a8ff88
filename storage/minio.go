package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"salonsync-backend/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore stores photos in a MinIO (or other S3 compatible) bucket
type MinioStore struct {
	client   *minio.Client
	settings config.StorageSettings
}

func NewMinioStore(settings config.StorageSettings) (*MinioStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(settings.Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(settings.AccessKey, settings.SecretKey, ""),
		Secure: settings.UseSSL,
		Region: settings.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{client: client, settings: settings}, nil
}

func (m *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	info, err := m.client.PutObject(ctx, m.settings.Bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put minio object %q: %w", key, err)
	}

	return &Object{
		Key:         key,
		URL:         publicURL(m.settings.PublicURL, m.settings.Bucket, m.settings.Endpoint, key, m.settings.UseSSL),
		ContentType: contentType,
		Size:        info.Size,
	}, nil
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.settings.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove minio object %q: %w", key, err)
	}
	return nil
}
