package storage

import (
	"context"
	"fmt"
	"io"

	"salonsync-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used for photos
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store stores photos in an S3 bucket
type S3Store struct {
	client   S3API
	settings config.StorageSettings
}

// NewS3Store loads AWS config and creates the S3 client. Static keys are
// used when present, otherwise the default credential chain.
func NewS3Store(ctx context.Context, settings config.StorageSettings) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, awsconfig.WithRegion(settings.Region))
	}
	if settings.AccessKey != "" && settings.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKey, settings.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if settings.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(settings.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewS3StoreWithClient(s3.NewFromConfig(cfg, s3Opts...), settings), nil
}

// NewS3StoreWithClient wraps an existing client
func NewS3StoreWithClient(client S3API, settings config.StorageSettings) *S3Store {
	return &S3Store{client: client, settings: settings}
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.settings.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put s3 object %q: %w", key, err)
	}

	return &Object{
		Key:         key,
		URL:         publicURL(s.settings.PublicURL, s.settings.Bucket, s.settings.Endpoint, key, true),
		ContentType: contentType,
		Size:        size,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.settings.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3 object %q: %w", key, err)
	}
	return nil
}
