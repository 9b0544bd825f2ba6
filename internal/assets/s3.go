package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Endpoint  string // Empty uses the AWS endpoint for Region
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string // Key prefix inside the bucket
}

type s3Objects struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store stores bundles as <prefix>/<id>/ objects in an S3-compatible
// bucket, using path-style addressing.
func NewS3Store(cfg S3Config) (*BundleStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(strings.TrimRight(cfg.Endpoint, "/"))
	}

	return &BundleStore{
		objects: &s3Objects{
			client: s3.New(opts),
			bucket: cfg.Bucket,
			prefix: strings.Trim(cfg.Prefix, "/"),
		},
		backend: "s3",
	}, nil
}

func (o *s3Objects) key(k string) string {
	if o.prefix == "" {
		return k
	}
	return path.Join(o.prefix, k)
}

func (o *s3Objects) write(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(o.key(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", o.bucket, o.key(key), err)
	}
	return nil
}

func (o *s3Objects) read(ctx context.Context, key string) ([]byte, error) {
	output, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key(key)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errMissing
		}
		return nil, fmt.Errorf("s3 download %s/%s: %w", o.bucket, o.key(key), err)
	}
	defer output.Body.Close()
	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s/%s: %w", o.bucket, o.key(key), err)
	}
	return data, nil
}

func (o *s3Objects) removePrefix(ctx context.Context, prefix string) error {
	full := o.key(prefix)
	if !strings.HasSuffix(full, "/") {
		full += "/"
	}
	pager := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(full),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list %s/%s: %w", o.bucket, full, err)
		}
		for _, obj := range page.Contents {
			if _, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(o.bucket),
				Key:    obj.Key,
			}); err != nil {
				return fmt.Errorf("s3 delete %s/%s: %w", o.bucket, aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}
