// Package store wraps the object-storage backends behind a single narrow
// interface. The upload core only sees Put and ListBuckets; whether a payload
// goes up in one shot or as a multipart upload is the backend's business.
package store

import "context"

// MultipartThreshold is the payload size at or above which backends switch to
// multipart upload (the S3 minimum part size, 5 MB).
const MultipartThreshold int64 = 5 * 1024 * 1024

// PutInput describes one object to upload.
type PutInput struct {
	Bucket          string
	Key             string
	Body            []byte
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
}

// PutResult is the terminal state of a successful Put.
type PutResult struct {
	URL   string
	ETag  string
	Bytes int64
}

// ObjectStore is the collaborator contract the upload core consumes.
type ObjectStore interface {
	// Put uploads one object and returns its public URL and ETag. Errors are
	// classifiable via Classify.
	Put(ctx context.Context, in PutInput) (PutResult, error)

	// ListBuckets returns the names of all buckets the credentials can see.
	ListBuckets(ctx context.Context) ([]string, error)
}
