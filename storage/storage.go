// Package storage uploads media set photos to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"salonsync-backend/config"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when no storage backend is set up
var ErrNotConfigured = errors.New("photo storage is not configured")

// Object describes a stored file
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Store is an object storage backend
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by settings.Driver
func New(ctx context.Context, settings config.StorageSettings) (Store, error) {
	switch settings.Driver {
	case "s3":
		return NewS3Store(ctx, settings)
	case "minio":
		return NewMinioStore(settings)
	case "", "none":
		return disabledStore{}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", settings.Driver)
	}
}

// PhotoKey builds the object key for a media set photo
func PhotoKey(salonID, mediaSetID uuid.UUID, kind, ext string) string {
	return path.Join("salons", salonID.String(), "media-sets", mediaSetID.String(),
		fmt.Sprintf("%s-%d%s", kind, time.Now().UnixNano(), ext))
}

func publicURL(base, bucket, endpoint, key string, useSSL bool) string {
	if base != "" {
		return strings.TrimRight(base, "/") + "/" + key
	}
	if endpoint != "" {
		scheme := "https"
		if !useSSL {
			scheme = "http"
		}
		endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

type disabledStore struct{}

func (disabledStore) Put(context.Context, string, io.Reader, int64, string) (*Object, error) {
	return nil, ErrNotConfigured
}

func (disabledStore) Delete(context.Context, string) error {
	return ErrNotConfigured
}

// Configured reports whether s can actually store photos
func Configured(s Store) bool {
	if s == nil {
		return false
	}
	_, disabled := s.(disabledStore)
	return !disabled
}
