package obj

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the s3 driver
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for minio and friends
}

// S3 implements Store over an s3-compatible bucket
type S3 struct {
	client *s3.Client
	bucket string
}

// OpenS3 builds the client from the default credential chain
func OpenS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("obj: empty bucket")
	}
	opts := []func(*awscfg.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	ac, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(ac, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// Get implements Store
func (s *S3) Get(ctx context.Context, key string) ([]byte, Meta, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, Meta{}, ErrNotFound
		}
		return nil, Meta{}, err
	}
	defer func() { _ = out.Body.Close() }()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, Meta{}, err
	}
	return body, metaFromHeaders(out.Metadata), nil
}

// Put implements Store
func (s *S3) Put(ctx context.Context, key string, body []byte, meta Meta) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/gzip"),
		Metadata:    meta.toHeaders(),
	})
	return err
}

// Head implements Store
func (s *S3) Head(ctx context.Context, key string) (Meta, bool, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return Meta{}, false, nil
		}
		return Meta{}, false, err
	}
	return metaFromHeaders(out.Metadata), true, nil
}

// isNoSuchKey matches both the typed NoSuchKey and the NotFound shape HeadObject returns
func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}
