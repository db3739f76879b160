package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/logging"
)

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures an S3-compatible object store holding ISO images.
type S3Options struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// S3Source serves ISO images kept in an S3-compatible bucket.
//
// The image directory maps to a key prefix: ListDirectory("/iso") lists the
// keys under "iso/". Image contents come from a "<key>.lst" object uploaded
// alongside each image.
type S3Source struct {
	client S3API
	bucket string
	logger *zap.Logger
}

// NewS3Source creates a source from static credentials, or from the default
// AWS credential chain when no access key is given.
func NewS3Source(ctx context.Context, opts S3Options) (*S3Source, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})

	return NewS3SourceFromClient(client, opts.Bucket), nil
}

// NewS3SourceFromClient wraps an existing client.
func NewS3SourceFromClient(client S3API, bucket string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		logger: logging.Named("artifact.s3"),
	}
}

// keyFor maps a filesystem-style path to an object key.
func keyFor(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// ListDirectory lists the object keys under dir, as space-separated paths
// rooted at "/".
func (s *S3Source) ListDirectory(ctx context.Context, dir string) (string, error) {
	prefix := keyFor(dir)
	if prefix != "" {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	var paths []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", ClassifyStorageError(prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				paths = append(paths, "/"+*obj.Key)
			}
		}
	}

	s.logger.Debug("Listed bucket prefix",
		zap.String("bucket", s.bucket),
		zap.String("prefix", prefix),
		zap.Int("objects", len(paths)),
	)
	return strings.Join(paths, " "), nil
}

// ReadContents returns the "<image>.lst" object for an image.
func (s *S3Source) ReadContents(ctx context.Context, image string) (string, error) {
	key := keyFor(image) + ListingSuffix

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", ClassifyStorageError(key, err)
	}
	defer func() { _ = out.Body.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return "", NewNetworkError("failed to read object body", err)
	}
	return buf.String(), nil
}
