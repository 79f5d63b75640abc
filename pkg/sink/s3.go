package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// S3Config holds the client settings for s3:// destinations.
type S3Config struct {
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack)
}

// ObjectPutter is the subset of the S3 client used by S3Sink.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads a table as a CSV object.
type S3Sink struct {
	client ObjectPutter
	bucket string
	key    string
}

// NewS3Sink writes to bucket/key through client.
func NewS3Sink(client ObjectPutter, bucket, key string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, key: key}
}

func newS3Sink(ctx context.Context, cfg S3Config, bucket, key string) (*S3Sink, error) {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, &regerr.WriteError{Dest: "s3://" + bucket + "/" + key, Err: fmt.Errorf("load AWS config: %w", err)}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Sink(client, bucket, key), nil
}

func (s *S3Sink) location() string { return "s3://" + s.bucket + "/" + s.key }

func (s *S3Sink) Write(ctx context.Context, t *regdata.ResultTable) (string, error) {
	data, err := csvBytes(t)
	if err != nil {
		return "", &regerr.WriteError{Dest: s.location(), Err: err}
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", &regerr.WriteError{Dest: s.location(), Err: fmt.Errorf("s3 put failed: %w", err)}
	}
	return s.location(), nil
}

func (s *S3Sink) Close() error { return nil }
