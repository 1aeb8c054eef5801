// Package s3store is the pipeline's object storage layer. Each run writes
// its outputs under date-partitioned keys and readers probe backwards from
// today to find the most recent partition.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/epigrid/epigridgo/internal/ctxlog"
)

// Environment variable names carried over from the deployment's secret
// configuration.
const (
	EnvAccessKey = "covid_s3_access_key"
	EnvSecretKey = "covid_s3_token"
	EnvBucket    = "bucket_name"
)

// Config holds the credentials and bucket for a Store.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	// Endpoint overrides the S3 endpoint, for S3-compatible services.
	Endpoint     string
	UsePathStyle bool
}

// ConfigFromEnv reads the store configuration from the environment.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		AccessKeyID:     os.Getenv(EnvAccessKey),
		SecretAccessKey: os.Getenv(EnvSecretKey),
		Bucket:          os.Getenv(EnvBucket),
		Region:          os.Getenv("AWS_REGION"),
	}
	if cfg.AccessKeyID == "" {
		return Config{}, fmt.Errorf("environment variable %s is not set", EnvAccessKey)
	}
	if cfg.SecretAccessKey == "" {
		return Config{}, fmt.Errorf("environment variable %s is not set", EnvSecretKey)
	}
	if cfg.Bucket == "" {
		return Config{}, fmt.Errorf("environment variable %s is not set", EnvBucket)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return cfg, nil
}

// API is the slice of the S3 client the store uses. Tests substitute an
// in-memory implementation through NewWithClient.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store reads and writes objects in a single bucket.
type Store struct {
	client API
	bucket string
}

// New builds a store from explicit credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// NewWithClient builds a store around an existing client.
func NewWithClient(client API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Bucket returns the bucket the store operates on.
func (s *Store) Bucket() string {
	return s.bucket
}

// Put uploads a payload under the given key. Empty payloads are rejected so
// a failed upstream fetch never truncates a published dataset.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if len(body) == 0 {
		return fmt.Errorf("refusing to put empty object at %q", key)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}

	ctxlog.FromContext(ctx).Info("Uploaded object.", "bucket", s.bucket, "key", key, "bytes", len(body))
	return nil
}

// Get downloads an object's full payload.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return body, nil
}

// List returns the keys under a prefix, up to 1000 entries.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1000),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}
