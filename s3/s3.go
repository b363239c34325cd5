// Package s3 persists artifacts to an S3-compatible object store.
package s3

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fwojciec/sitegen"
	"github.com/fwojciec/sitegen/fs"
)

// Client is the subset of the S3 API the Writer uses.
type Client interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// Config holds object-store settings.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is prepended to every key (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required: %w", sitegen.ErrConfiguration)
	}
	return nil
}

var _ sitegen.ArtifactWriter = (*Writer)(nil)

// Writer implements sitegen.ArtifactWriter. Files land under
// <prefix>/<format>_<owner>/<name>; regeneration overwrites.
type Writer struct {
	client Client
	bucket string
	prefix string
}

// NewWriter creates a Writer on an existing client.
func NewWriter(client Client, bucket, prefix string) *Writer {
	return &Writer{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// New loads AWS credentials from the default chain and returns a Writer.
func New(ctx context.Context, cfg Config) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w: %w", sitegen.ErrConfiguration, err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}
	return NewWriter(awss3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

// Write validates the artifact, then uploads each file in name order and
// returns the s3:// URL of the target prefix.
func (w *Writer) Write(ctx context.Context, artifact sitegen.Artifact, format sitegen.Format, ownerID int64) (string, error) {
	files, err := fs.Files(artifact)
	if err != nil {
		return "", err
	}

	dir := path.Join(w.prefix, sitegen.TargetName(format, ownerID))
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := path.Join(dir, name)
		_, err := w.client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket:      aws.String(w.bucket),
			Key:         aws.String(key),
			Body:        strings.NewReader(files[name]),
			ContentType: aws.String(ContentType(name)),
		})
		if err != nil {
			return "", fmt.Errorf("put s3://%s/%s: %w: %w", w.bucket, key, sitegen.ErrIO, err)
		}
	}
	return "s3://" + w.bucket + "/" + dir, nil
}

// ContentType picks a MIME type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "text/javascript; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
