package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/my-mailer/internal/submission"
)

// S3Config configures the bucket backend. Endpoint switches the client to
// path-style addressing for S3-compatible providers.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	HTTPClient      *http.Client
}

// S3Store writes each submission as a single object. PutObject is atomic and
// conditional on the key being absent.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds the client and checks the bucket is reachable.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, storageErr("init", errors.New("bucket name is required"))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		}
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
		awscfg.WithHTTPClient(httpClient),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storageErr("init", fmt.Errorf("load aws config: %w", err))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	s := &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Ping implements Store.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return storageErr("head bucket", err)
	}
	return nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, sub submission.Submission) (string, error) {
	data, err := encodeRecord(sub.Record())
	if err != nil {
		return "", storageErr("encode", err)
	}
	base := sub.ID()
	id := base
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(id)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
			IfNoneMatch: aws.String("*"),
		})
		if err == nil {
			return id, nil
		}
		if !isPreconditionFailed(err) {
			return "", storageErr("put object", err)
		}
		id = suffixedID(base)
	}
	return "", storageErr("put object", fmt.Errorf("no free record name for %s", base))
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, id string) (submission.Record, error) {
	if !validID(id) {
		return submission.Record{}, ErrNotFound
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return submission.Record{}, ErrNotFound
		}
		return submission.Record{}, storageErr("get object", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return submission.Record{}, storageErr("read object", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return submission.Record{}, storageErr("decode", err)
	}
	return rec, nil
}

func (s *S3Store) key(id string) string {
	return s.prefix + id + recordExt
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed"
	}
	return false
}
