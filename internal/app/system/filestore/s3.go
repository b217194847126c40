// internal/app/system/filestore/s3.go
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 backend. Endpoint, AccessKey and SecretKey are
// only needed for S3-compatible servers such as MinIO.
type S3Config struct {
	Region       string
	Bucket       string
	Prefix       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// S3 stores objects in a bucket under an optional key prefix.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3 loads AWS configuration and builds the backend.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("filestore: s3 bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("filestore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}, nil
}

func (s *S3) Name() string { return BackendS3 }

func (s *S3) fullKey(id string) string {
	if s.prefix == "" {
		return id
	}
	return path.Join(s.prefix, id)
}

func (s *S3) Store(ctx context.Context, up Upload) (Stored, error) {
	key := objectKey(s.now().UTC(), up.Name)
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.fullKey(key)),
		Body:        up.Body,
		ContentType: aws.String(up.ContentType),
	}
	if up.Size > 0 {
		in.ContentLength = aws.Int64(up.Size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Stored{}, fmt.Errorf("filestore: s3 put %s: %w", key, err)
	}
	return Stored{ID: key, Size: up.Size}, nil
}

func (s *S3) Remove(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(id)),
	})
	if err != nil {
		return fmt.Errorf("filestore: s3 delete %s: %w", id, err)
	}
	return nil
}

func (s *S3) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("filestore: s3 get %s: %w", id, err)
	}
	return out.Body, nil
}
