package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"salonsync-backend/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    []byte
	deleted string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = *in.Key
	return &s3.DeleteObjectOutput{}, nil
}

func TestReadPhoto(t *testing.T) {
	t.Run("accepts png", func(t *testing.T) {
		photo, err := ReadPhoto(bytes.NewReader(pngHeader))
		require.NoError(t, err)
		assert.Equal(t, "image/png", photo.ContentType)
		assert.Equal(t, ".png", photo.Extension)
		assert.Equal(t, int64(len(pngHeader)), photo.Size())
	})

	t.Run("rejects text", func(t *testing.T) {
		_, err := ReadPhoto(strings.NewReader("hello, this is not an image"))
		assert.ErrorIs(t, err, ErrNotAnImage)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		big := append(append([]byte{}, pngHeader...), make([]byte, MaxPhotoSize)...)
		_, err := ReadPhoto(bytes.NewReader(big))
		assert.ErrorIs(t, err, ErrPhotoTooLarge)
	})
}

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3StoreWithClient(fake, config.StorageSettings{
		Bucket:    "media",
		PublicURL: "https://cdn.example.com/",
	})

	obj, err := store.Put(context.Background(), "salons/a/b.png", bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "media", *fake.put.Bucket)
	assert.Equal(t, "image/png", *fake.put.ContentType)
	assert.Equal(t, pngHeader, fake.body)
	assert.Equal(t, "https://cdn.example.com/salons/a/b.png", obj.URL)

	require.NoError(t, store.Delete(context.Background(), "salons/a/b.png"))
	assert.Equal(t, "salons/a/b.png", fake.deleted)
}

func TestS3StoreErrors(t *testing.T) {
	fake := &fakeS3{err: errors.New("boom")}
	store := NewS3StoreWithClient(fake, config.StorageSettings{Bucket: "media"})

	_, err := store.Put(context.Background(), "k", bytes.NewReader(nil), 0, "image/png")
	assert.ErrorContains(t, err, "boom")
	assert.ErrorContains(t, store.Delete(context.Background(), "k"), "boom")
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://media.s3.amazonaws.com/k.png", publicURL("", "media", "", "k.png", true))
	assert.Equal(t, "http://localhost:9000/media/k.png", publicURL("", "media", "http://localhost:9000", "k.png", false))
	assert.Equal(t, "https://cdn/k.png", publicURL("https://cdn", "media", "localhost:9000", "k.png", false))
}

func TestPhotoKey(t *testing.T) {
	salonID, setID := uuid.New(), uuid.New()
	key := PhotoKey(salonID, setID, "before", ".jpg")
	assert.True(t, strings.HasPrefix(key, "salons/"+salonID.String()+"/media-sets/"+setID.String()+"/before-"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestNewDisabled(t *testing.T) {
	store, err := New(context.Background(), config.StorageSettings{Driver: "none"})
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "k", nil, 0, "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(context.Background(), config.StorageSettings{Driver: "ftp"})
	assert.Error(t, err)
}
