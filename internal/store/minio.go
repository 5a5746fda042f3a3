package store

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioStore is the backend for MinIO or any S3-compatible endpoint. It is
// primarily used for local development and self-hosted object stores; to
// point it at a different S3-compatible provider, change the endpoint and
// credentials; no code changes are needed.
type MinioStore struct {
	client     *minio.Client
	publicBase string
	secure     bool
}

// NewMinioStore creates a MinIO client for the given endpoint.
func NewMinioStore(endpoint, accessKey, secretKey, publicBase string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	log.Debug().Str("endpoint", endpoint).Bool("ssl", useSSL).Msg("MinIO store initialized")

	return &MinioStore{
		client:     client,
		publicBase: strings.TrimRight(publicBase, "/"),
		secure:     useSSL,
	}, nil
}

// Put uploads one object. minio-go switches to multipart automatically once
// the payload exceeds its part size; passing the exact size avoids buffering.
func (s *MinioStore) Put(ctx context.Context, in PutInput) (PutResult, error) {
	opts := minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: in.Metadata,
		PartSize:     uint64(MultipartThreshold),
	}
	if in.ContentEncoding != "" {
		opts.ContentEncoding = in.ContentEncoding
	}

	info, err := s.client.PutObject(ctx, in.Bucket, in.Key, bytes.NewReader(in.Body), int64(len(in.Body)), opts)
	if err != nil {
		return PutResult{}, &Error{Kind: classifyMinio(err), Op: "put", Err: err}
	}

	log.Debug().
		Str("bucket", in.Bucket).
		Str("key", in.Key).
		Int64("size", info.Size).
		Msg("Object uploaded to MinIO")

	return PutResult{
		URL:   s.objectURL(in.Bucket, in.Key),
		ETag:  info.ETag,
		Bytes: int64(len(in.Body)),
	}, nil
}

// ListBuckets returns the names of all buckets the credentials can see.
func (s *MinioStore) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, &Error{Kind: classifyMinio(err), Op: "list_buckets", Err: err}
	}

	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

// objectURL builds the browser-accessible URL for an uploaded object.
// For local MinIO: "http://localhost:9000/images/photo.jpg"
// With a CDN base configured: "https://cdn.example.com/photo.jpg"
func (s *MinioStore) objectURL(bucket, key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, bucket, key)
}
