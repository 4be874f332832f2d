// Package storage archives generated reports in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type S3Archive struct {
	client s3iface.S3API
	bucket string
}

// NewS3Archive connects to AWS or, with Endpoint set, to an S3-compatible
// server such as MinIO using path-style addressing.
func NewS3Archive(opts Options) (*S3Archive, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg := &aws.Config{Region: aws.String(opts.Region)}
	if opts.AccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}
	return NewS3ArchiveWithClient(s3.New(sess), opts.Bucket), nil
}

func NewS3ArchiveWithClient(client s3iface.S3API, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// Put uploads body under key and returns its s3:// location.
func (a *S3Archive) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
