package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxPhotoSize is the largest accepted upload
const MaxPhotoSize = 10 << 20

var (
	ErrPhotoTooLarge = errors.New("photo exceeds the 10MB limit")
	ErrNotAnImage    = errors.New("file is not a supported image")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
	"image/gif":  true,
}

// Photo is an upload that has been read and validated
type Photo struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ReadPhoto reads at most MaxPhotoSize bytes and sniffs the content type
func ReadPhoto(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if len(data) > MaxPhotoSize {
		return nil, ErrPhotoTooLarge
	}

	mt := mimetype.Detect(data)
	contentType := strings.SplitN(mt.String(), ";", 2)[0]
	if !allowedImageTypes[contentType] {
		return nil, ErrNotAnImage
	}

	return &Photo{Data: data, ContentType: contentType, Extension: mt.Extension()}, nil
}

// Reader returns a fresh reader over the photo bytes
func (p *Photo) Reader() io.Reader {
	return bytes.NewReader(p.Data)
}

func (p *Photo) Size() int64 {
	return int64(len(p.Data))
}
