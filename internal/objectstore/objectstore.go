// Package objectstore is the Object store gateway: a thin wrapper
// around an S3-compatible bucket shared by the submission service
// (raw upload staging, presigned error-report links) and the worker
// (raw download, error report upload).
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/customer-ingest/internal/apperr"
	"github.com/customer-ingest/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gateway is the concrete object store client.
type Gateway struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	defaultTTL    time.Duration
	log           zerolog.Logger
}

// New builds a Gateway from S3Config, ensuring the bucket exists.
func New(ctx context.Context, cfg config.S3Config, log zerolog.Logger) (*Gateway, error) {
	client, err := newClient(ctx, cfg.EndpointURL, cfg)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	presignEndpoint := cfg.PublicEndpointURL
	if presignEndpoint == "" {
		presignEndpoint = cfg.EndpointURL
	}
	presignSource, err := newClient(ctx, presignEndpoint, cfg)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	g := &Gateway{
		client:        client,
		presignClient: s3.NewPresignClient(presignSource),
		bucket:        cfg.Bucket,
		defaultTTL:    cfg.PresignTTL,
		log:           log.With().Str("component", "objectstore").Logger(),
	}

	if err := g.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func newClient(ctx context.Context, endpoint string, cfg config.S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func (g *Gateway) ensureBucket(ctx context.Context) error {
	_, err := g.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(g.bucket)})
	if err == nil {
		return nil
	}

	var alreadyOwned *s3types.BucketAlreadyOwnedByYou
	var alreadyExists *s3types.BucketAlreadyExists
	if errors.As(err, &alreadyOwned) || errors.As(err, &alreadyExists) {
		return nil
	}
	return apperr.Storage(err)
}

// sanitizeFilename replaces path separators so a key cannot escape
// its imports/ prefix.
func sanitizeFilename(filename string) string {
	r := strings.NewReplacer("/", "_", "\\", "_")
	return r.Replace(filename)
}

// PutBytes stages data under imports/<uuid>_<safe-name> and returns
// the generated key.
func (g *Gateway) PutBytes(ctx context.Context, data []byte, filename string) (string, error) {
	key := fmt.Sprintf("imports/%s_%s", uuid.New().String(), sanitizeFilename(filename))

	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", apperr.Storage(err)
	}
	return key, nil
}

// GetBytes fetches exactly the bytes previously stored at key.
func (g *Gateway) GetBytes(ctx context.Context, key string) ([]byte, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, &apperr.Error{Kind: apperr.KindObjectMissing, Err: apperr.ErrObjectMissing, Msg: key}
		}
		return nil, apperr.Storage(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return data, nil
}

// PresignGet produces a time-bounded download URL that forces the
// given filename via Content-Disposition.
func (g *Gateway) PresignGet(ctx context.Context, key string, ttl time.Duration, downloadFilename string) (string, error) {
	if ttl <= 0 {
		ttl = g.defaultTTL
	}

	disposition := fmt.Sprintf(`attachment; filename="%s"`, downloadFilename)
	req, err := g.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(g.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(disposition),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", apperr.Storage(err)
	}
	return req.URL, nil
}
