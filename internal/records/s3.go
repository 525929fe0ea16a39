package records

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the backup mirror.
type S3Options struct {
	Bucket   string // required
	Region   string
	Prefix   string // key prefix, e.g. "pdf-collector/backups"
	Endpoint string // custom endpoint for MinIO compatibility
}

// putObjectAPI is the slice of the S3 client the mirror uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror copies daily backups to a bucket.
type S3Mirror struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Mirror loads the default AWS credential chain and returns a mirror.
func NewS3Mirror(ctx context.Context, opts S3Options) (*S3Mirror, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 mirror: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Mirror(s3.NewFromConfig(cfg, s3Opts...), opts.Bucket, opts.Prefix), nil
}

func newS3Mirror(client putObjectAPI, bucket, prefix string) *S3Mirror {
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return &S3Mirror{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key a backup is stored under.
func (m *S3Mirror) Key(name string) string {
	return m.prefix + name
}

// Put uploads one snapshot.
func (m *S3Mirror) Put(ctx context.Context, name string, body []byte) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.Key(name)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put backup %s: %w", m.Key(name), err)
	}
	return nil
}
