// Package s3 implements the versioned store on Amazon S3, using
// conditional PUT (If-None-Match) for the atomic create-if-absent the lock
// manager depends on. S3 rejects a conditional PUT against an existing
// object with 412 PreconditionFailed, which maps to store.ErrKeyExists.
package s3

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"

	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/store"
)

// API is the slice of the S3 client the store uses; tests substitute a fake.
type API interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Options configures the S3-backed store.
type Options struct {
	// Bucket is the REQUIRED bucket holding catalogs, baselines, and locks.
	Bucket string

	// Prefix is prepended to every key, e.g. "kafka-automation/".
	Prefix string

	// Region selects the bucket's region; empty falls back to the
	// default AWS configuration chain.
	Region string

	// Client overrides the AWS S3 client, used by tests.
	Client API
}

// Store is a store.Store backed by an S3 bucket.
type Store struct {
	client API
	bucket string
	prefix string
}

// New creates an S3 store, loading credentials from the default AWS chain
// unless Options.Client is supplied.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "s3 store: Bucket is required")
	}

	client := opts.Client
	if client == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if opts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "loading AWS configuration")
		}
		client = awss3.NewFromConfig(cfg)
	}

	return &Store{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Read implements store.Store.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, errors.CodeIO, "reading s3://%s/%s", s.bucket, s.key(key))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "reading s3://%s/%s", s.bucket, s.key(key))
	}
	return data, nil
}

// Exists implements store.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.CodeIO, "checking s3://%s/%s", s.bucket, s.key(key))
	}
	return true, nil
}

// Write implements store.Store. The message is ignored; S3 keeps history
// through bucket versioning, not commit messages.
func (s *Store) Write(ctx context.Context, key string, data []byte, _ string) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimetype.Detect(data).String()),
	})
	if err != nil {
		return errors.Wrapf(err, errors.CodeIO, "writing s3://%s/%s", s.bucket, s.key(key))
	}
	return nil
}

// Create implements store.Store with a conditional PUT. S3 evaluates
// If-None-Match atomically, so exactly one of two racing creates wins.
func (s *Store) Create(ctx context.Context, key string, data []byte, _ string) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimetype.Detect(data).String()),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return store.ErrKeyExists
		}
		return errors.Wrapf(err, errors.CodeIO, "creating s3://%s/%s", s.bucket, s.key(key))
	}
	return nil
}

// Delete implements store.Store. S3 deletes are idempotent by nature.
func (s *Store) Delete(ctx context.Context, key string, _ string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return errors.Wrapf(err, errors.CodeIO, "deleting s3://%s/%s", s.bucket, s.key(key))
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed"
	}
	return strings.Contains(err.Error(), "PreconditionFailed")
}

var _ store.Store = (*Store)(nil)
