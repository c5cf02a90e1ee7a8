// Package s3 implements the object-store port on AWS S3 (or any
// S3-compatible endpoint such as MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/savevault/savevault/internal/config"
	"github.com/savevault/savevault/internal/domain"
	"github.com/savevault/savevault/internal/resilience"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// Store holds save-file blobs in a single S3 bucket. All calls go through
// a shared circuit breaker and a transfer pool so an unreachable endpoint
// fails fast instead of piling up blocked uploads.
type Store struct {
	client  *s3.Client
	bucket  string
	breaker *resilience.Breaker
	pool    *resilience.Pool
}

// New loads AWS config from the environment chain (AWS_PROFILE, shared
// config, IMDS) and constructs an S3-backed Store. A non-empty
// cfg.Endpoint switches to path-style addressing for S3-compatible stores.
func New(ctx context.Context, cfg config.Storage) (*Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newStore(client, cfg.Bucket, cfg.MaxTransfers), nil
}

// NewWithClient constructs a Store around an existing client, for tests.
func NewWithClient(client *s3.Client, bucket string) *Store {
	return newStore(client, bucket, 0)
}

func newStore(client *s3.Client, bucket string, maxTransfers int) *Store {
	if maxTransfers < 1 {
		maxTransfers = 16
	}
	return &Store{
		client:  client,
		bucket:  bucket,
		breaker: resilience.NewBreaker(breakerFailures, breakerTimeout),
		pool:    resilience.NewPool(maxTransfers),
	}
}

// Put uploads a blob, replacing any existing object at key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.pool.Run(ctx, func() error {
		return s.breaker.Execute(func() error {
			_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket:        aws.String(s.bucket),
				Key:           aws.String(key),
				Body:          r,
				ContentLength: aws.Int64(size),
				ContentType:   aws.String(contentType),
			})
			if err != nil {
				return fmt.Errorf("s3 put %s: %w", key, err)
			}
			return nil
		})
	})
}

// Get opens a blob for reading. The caller must close the returned reader.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var body io.ReadCloser
	var notFound bool
	err := s.pool.Run(ctx, func() error {
		return s.breaker.Execute(func() error {
			out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				var noKey *types.NoSuchKey
				if errors.As(err, &noKey) {
					// A missing key is a healthy response, not a
					// store failure; don't count it against the breaker.
					notFound = true
					return nil
				}
				return fmt.Errorf("s3 get %s: %w", key, err)
			}
			body = out.Body
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, fmt.Errorf("s3 get %s: %w", key, domain.ErrNotFound)
	}
	return body, nil
}

// Delete removes a blob. S3 treats deleting a missing key as success,
// which matches the port contract.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.pool.Run(ctx, func() error {
		return s.breaker.Execute(func() error {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return fmt.Errorf("s3 delete %s: %w", key, err)
			}
			return nil
		})
	})
}
