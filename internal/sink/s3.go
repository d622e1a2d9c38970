package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ppiankov/broadsheet/internal/model"
)

// objectPutter is the subset of the S3 client used by S3Sink
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads reports as JSON objects
type S3Sink struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Sink creates an S3 sink using the default AWS credential chain
func NewS3Sink(ctx context.Context, bucket, prefix, region string) (*S3Sink, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3SinkWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3SinkWithClient(client objectPutter, bucket, prefix string) *S3Sink {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// Name implements Sink
func (s *S3Sink) Name() string {
	return "s3"
}

// Key returns the object key a report is stored under
func (s *S3Sink) Key(report *model.Report) string {
	return s.prefix + reportKey(report)
}

// Write implements Sink
func (s *S3Sink) Write(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(report)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"run-id":   report.RunID,
			"document": report.DocumentID,
		},
	})
	if err != nil {
		return fmt.Errorf("upload report: %w", err)
	}
	return nil
}

// Close implements Sink
func (s *S3Sink) Close() error {
	return nil
}
