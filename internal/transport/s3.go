package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config holds the client settings for an S3-compatible endpoint.
type S3Config struct {
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

// S3Transfer streams objects from S3-compatible storage.
type S3Transfer struct {
	client *s3.S3
}

// NewS3Transfer builds a client from the given config. An empty region
// falls back to us-east-1.
func NewS3Transfer(cfg S3Config) (*S3Transfer, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg := aws.NewConfig().WithRegion(region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}
	return &S3Transfer{client: s3.New(sess)}, nil
}

// ObjectSize returns the size of an object without fetching it.
func (t *S3Transfer) ObjectSize(ctx context.Context, bucket, key string) (int64, error) {
	result, err := t.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}
	if result.ContentLength == nil {
		return 0, nil
	}
	return *result.ContentLength, nil
}

// OpenObject returns a streaming reader for the object body. The caller
// must close it.
func (t *S3Transfer) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	result, err := t.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, err
	}
	size := int64(0)
	if result.ContentLength != nil {
		size = *result.ContentLength
	}
	return result.Body, size, nil
}
