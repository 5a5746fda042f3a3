package store

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// serviceTag is the URL-encoded S3 object tagging string for cost allocation.
const serviceTag = "Service=imagegate"

// S3Store is the AWS S3 backend. Credentials come from the SDK's native
// credential chain (env, shared config, instance role).
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	region     string
	publicBase string
}

// NewS3Store builds an S3 client and a transfer-manager uploader. The
// uploader's part size equals MultipartThreshold, so any payload above 5 MB
// goes up as a multipart upload and anything smaller as a single PutObject.
func NewS3Store(ctx context.Context, region, publicBase string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = MultipartThreshold
	})

	log.Debug().Str("region", region).Msg("S3 store initialized")

	return &S3Store{
		client:     client,
		uploader:   uploader,
		region:     region,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Put uploads one object. Failed multipart uploads are aborted by the
// transfer manager itself, so a retried Put always starts from scratch with
// no orphaned parts.
func (s *S3Store) Put(ctx context.Context, in PutInput) (PutResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(in.Bucket),
		Key:           aws.String(in.Key),
		Body:          bytes.NewReader(in.Body),
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(int64(len(in.Body))),
		Metadata:      in.Metadata,
		Tagging:       aws.String(serviceTag),
	}
	if in.ContentEncoding != "" {
		input.ContentEncoding = aws.String(in.ContentEncoding)
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return PutResult{}, &Error{Kind: classifyAWS(err), Op: "put", Err: err}
	}

	log.Debug().
		Str("bucket", in.Bucket).
		Str("key", in.Key).
		Int("size", len(in.Body)).
		Bool("multipart", int64(len(in.Body)) >= MultipartThreshold).
		Msg("Object uploaded to S3")

	return PutResult{
		URL:   s.objectURL(in.Bucket, in.Key),
		ETag:  strings.Trim(aws.ToString(out.ETag), `"`),
		Bytes: int64(len(in.Body)),
	}, nil
}

// ListBuckets returns the names of all buckets the credentials can see.
func (s *S3Store) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, &Error{Kind: classifyAWS(err), Op: "list_buckets", Err: err}
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// objectURL builds the browser-accessible URL for an uploaded object.
func (s *S3Store) objectURL(bucket, key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
}
