// Package keys loads PEM key material from one of three sources: an inline
// PEM block, an s3://bucket/key object, or a file path.
package keys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

var ErrEmptySource = errors.New("empty key source")

// S3Config points the loader at an S3 compatible store (AWS or MinIO).
// Empty AccessKey falls back to the default AWS credential chain.
type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Loader struct {
	s3 S3Config
}

func NewLoader(cfg S3Config) *Loader {
	return &Loader{s3: cfg}
}

// Load returns the PEM bytes named by source.
func (l *Loader) Load(ctx context.Context, source string) ([]byte, error) {
	trimmed := strings.TrimSpace(source)
	switch {
	case trimmed == "":
		return nil, ErrEmptySource
	case strings.HasPrefix(trimmed, "-----BEGIN"):
		return []byte(trimmed + "\n"), nil
	case strings.HasPrefix(trimmed, s3Scheme):
		return l.loadS3(ctx, trimmed)
	default:
		b, err := os.ReadFile(trimmed)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		return b, nil
	}
}

func (l *Loader) loadS3(ctx context.Context, source string) ([]byte, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(source, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 key source %q: want s3://bucket/key", source)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(l.s3.Region)}
	if l.s3.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.s3.AccessKey, l.s3.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if l.s3.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(l.s3.BaseEndpoint)
		}
		o.UsePathStyle = l.s3.UsePathStyle
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return buf.Bytes(), nil
}
