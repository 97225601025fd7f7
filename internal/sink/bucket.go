package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/agentstation/sevexport/pkg/errors"
	"github.com/agentstation/sevexport/pkg/logging"
)

// BucketConfig locates an S3 compatible bucket.
type BucketConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	// Prefix is prepended to every object key, typically the export folder name.
	Prefix string
	UseSSL bool
}

// objectStore is the part of *minio.Client the sink needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// BucketSink mirrors the export folder layout into an S3/MinIO bucket.
type BucketSink struct {
	client objectStore
	bucket string
	region string
	prefix string
}

// NewBucketSink connects to the object store described by cfg.
func NewBucketSink(cfg BucketConfig) (*BucketSink, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewConfigError("s3", "endpoint is required", nil)
	}
	if cfg.Bucket == "" {
		return nil, errors.NewConfigError("s3", "bucket is required", nil)
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.NewConfigError("s3", "credentials are required", nil)
	}

	endpoint, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewConfigError("s3", "failed to create client", err)
	}

	return newBucketSink(client, cfg), nil
}

func newBucketSink(client objectStore, cfg BucketConfig) *BucketSink {
	return &BucketSink{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// splitEndpoint accepts "host:port" or a URL; an https scheme forces TLS.
func splitEndpoint(raw string, useSSL bool) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, errors.NewConfigError("s3", fmt.Sprintf("invalid endpoint %q", raw), err)
	}
	return u.Host, useSSL || u.Scheme == "https", nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *BucketSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.WrapResource("check", "bucket", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.WrapResource("create", "bucket", s.bucket, err)
	}
	logging.Ctx(ctx).Info().Str("bucket", s.bucket).Msg("Bucket created")
	return nil
}

// Key returns the object key for a relative artifact path.
func (s *BucketSink) Key(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

// WriteJSON implements Sink.
func (s *BucketSink) WriteJSON(ctx context.Context, name string, v any) error {
	rel, err := jsonName(name)
	if err != nil {
		return err
	}
	data, err := marshalJSON(rel, v)
	if err != nil {
		return err
	}
	return s.put(ctx, rel, data, "application/json")
}

// WriteBinary implements Sink.
func (s *BucketSink) WriteBinary(ctx context.Context, relPath string, data []byte) error {
	rel, err := cleanPath(relPath)
	if err != nil {
		return err
	}
	return s.put(ctx, rel, data, http.DetectContentType(data))
}

func (s *BucketSink) put(ctx context.Context, rel string, data []byte, contentType string) error {
	key := s.Key(rel)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.WrapIO("upload", s.bucket+"/"+key, err)
	}
	logging.Ctx(ctx).Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("Object uploaded")
	return nil
}
