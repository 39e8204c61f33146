package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage implements Storage using S3-compatible object storage.
// It is safe for concurrent use and meant to be constructed once and injected.
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       Config
}

// New creates a new S3Storage with the given configuration.
func New(cfg Config) (*S3Storage, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)
		},
	}

	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	client := s3.New(s3.Options{}, opts...)

	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
	}, nil
}

// PresignPut generates a pre-signed PUT URL for the key.
func (s *S3Storage) PresignPut(ctx context.Context, key string, opts ...URLOption) (string, error) {
	o := newURLOptions(opts...)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}
	if o.contentType != "" {
		input.ContentType = aws.String(o.contentType)
	}
	if o.cacheControl != "" {
		input.CacheControl = aws.String(o.cacheControl)
	}

	result, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(o.expiry))
	if err != nil {
		return "", wrapS3Error(err, ErrPresignFailed)
	}

	return result.URL, nil
}

// URL generates a pre-signed GET URL for the key.
func (s *S3Storage) URL(ctx context.Context, key string, opts ...URLOption) (string, error) {
	o := newURLOptions(opts...)

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}

	if o.downloadName != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", o.downloadName)
		input.ResponseContentDisposition = aws.String(disposition)
	}

	result, err := s.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(o.expiry))
	if err != nil {
		return "", wrapS3Error(err, ErrPresignFailed)
	}

	return result.URL, nil
}

// Head fetches object metadata.
func (s *S3Storage) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}

	output, err := s.client.HeadObject(ctx, input)
	if err != nil {
		return nil, wrapS3Error(err, ErrHeadFailed)
	}

	return headToInfo(key, output), nil
}

// Delete removes an object from S3.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}

	if _, err := s.client.DeleteObject(ctx, input); err != nil {
		return wrapS3Error(err, ErrDeleteFailed)
	}

	return nil
}

// headToInfo decodes the SDK head output once, at the package boundary.
func headToInfo(key string, output *s3.HeadObjectOutput) *ObjectInfo {
	info := &ObjectInfo{
		Key:         key,
		ContentType: aws.ToString(output.ContentType),
		ETag:        TrimETag(aws.ToString(output.ETag)),
		Size:        aws.ToInt64(output.ContentLength),
	}
	if output.LastModified != nil {
		info.LastModified = *output.LastModified
	}
	return info
}

// TrimETag strips the surrounding quotes (and a weak validator prefix) S3
// puts around entity tags.
func TrimETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}

// Ensure S3Storage implements Storage.
var _ Storage = (*S3Storage)(nil)
