package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/GTDGit/pricewatch_api/internal/config"
)

// ObjectGetter is the part of the S3 client used to download feeds.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// FeedService opens scraper output from local files or S3.
type FeedService struct {
	s3      ObjectGetter
	charset encoding.Encoding
}

// NewFeedService builds a FeedService. Static credentials are used when
// configured, otherwise the default AWS credential chain.
func NewFeedService(ctx context.Context, cfg *config.FeedConfig) (*FeedService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("feed config is nil")
	}

	svc := &FeedService{}
	if cfg.Charset != "" {
		enc, err := htmlindex.Get(cfg.Charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported feed charset %q: %w", cfg.Charset, err)
		}
		svc.charset = enc
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	svc.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return svc, nil
}

// NewFeedServiceWith builds a FeedService around an existing S3 client.
// A nil charset reads feeds as UTF-8.
func NewFeedServiceWith(getter ObjectGetter, charset encoding.Encoding) *FeedService {
	return &FeedService{s3: getter, charset: charset}
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %q", uri)
	}
	return bucket, key, nil
}

// Open returns the raw feed at source, either a local path or an s3:// URI.
func (s *FeedService) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "s3://") {
		return os.Open(source)
	}

	bucket, key, err := ParseS3URI(source)
	if err != nil {
		return nil, err
	}
	if s.s3 == nil {
		return nil, fmt.Errorf("s3 client not configured")
	}

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to download feed")
		return nil, fmt.Errorf("get s3 object: %w", err)
	}
	log.Info().Str("bucket", bucket).Str("key", key).Msg("Feed downloaded")
	return out.Body, nil
}

// Load opens source and decodes its scraped products, converting the
// configured charset to UTF-8.
func (s *FeedService) Load(ctx context.Context, source string) ([]ScrapedProduct, error) {
	rc, err := s.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.charset != nil {
		r = transform.NewReader(rc, s.charset.NewDecoder())
	}
	return DecodeScraped(r)
}
