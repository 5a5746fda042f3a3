// Package uploader is the batch upload core: a bounded-concurrency
// orchestrator that pushes images through transcode and object storage with
// per-item retry, a shared circuit breaker, and partial-success semantics.
package uploader

import (
	"math"
	"time"

	"github.com/imagegate/imagegate/internal/store"
)

// ErrorKind identifies why an upload item failed. Kinds double as the retry
// classification: only throttled and transient store failures are retried by
// the default policy.
type ErrorKind string

const (
	// KindSourceUnreadable: the source file is missing, oversized, or an
	// unsupported format. Never retried.
	KindSourceUnreadable ErrorKind = "source_unreadable"
	// KindTranscodeFailed: optimization failed. Non-fatal; the original
	// bytes are uploaded and the outcome carries a note.
	KindTranscodeFailed ErrorKind = "transcode_failed"
	// KindStoreThrottled: the store pushed back on request rate. Retryable.
	KindStoreThrottled ErrorKind = "store_throttled"
	// KindStoreTransient: 5xx or network failure. Retryable.
	KindStoreTransient ErrorKind = "store_transient"
	// KindStorePermissionDenied: credentials rejected. Not retried.
	KindStorePermissionDenied ErrorKind = "store_permission_denied"
	// KindStoreInvalidDestination: bucket or key unusable. Not retried.
	KindStoreInvalidDestination ErrorKind = "store_invalid_destination"
	// KindStoreFailed: unclassified store error. Not retried.
	KindStoreFailed ErrorKind = "store_failed"
	// KindTimeout: the per-item deadline expired.
	KindTimeout ErrorKind = "timeout"
	// KindCircuitOpen: the breaker refused the attempt; the store was never
	// contacted.
	KindCircuitOpen ErrorKind = "circuit_open"
	// KindCancelled: the caller cancelled the batch.
	KindCancelled ErrorKind = "cancelled"
)

// Item is one upload request. Immutable once submitted.
type Item struct {
	// SourcePath is the local file to upload.
	SourcePath string
	// DestinationKey overrides the derived object key when non-empty.
	DestinationKey string
	// FolderPrefix is prepended to derived keys ("photos/2026").
	FolderPrefix string
}

// Options are the per-invocation upload settings.
type Options struct {
	Bucket    string
	Optimize  bool
	Quality   int
	MaxWidth  int
	MaxHeight int
	// Concurrency overrides the uploader's batch limit when positive. It is
	// still clamped to the hard cap.
	Concurrency int
}

// Outcome is the terminal, immutable result for one item. Exactly one is
// produced per submitted item, in input order.
type Outcome struct {
	SourcePath string    `json:"sourcePath"`
	Key        string    `json:"key,omitempty"`
	Success    bool      `json:"success"`
	URL        string    `json:"url,omitempty"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty"`
	Error      string    `json:"error,omitempty"`
	// Attempts is the number of store calls made. Zero means the store was
	// never contacted (circuit open, cancelled before launch, bad source).
	Attempts         int    `json:"attempts"`
	BytesTransferred int64  `json:"bytesTransferred"`
	DurationMs       int64  `json:"durationMs"`
	ContentType      string `json:"contentType,omitempty"`
	// Note records non-fatal degradations, e.g. a transcode fallback.
	Note string `json:"note,omitempty"`
}

// BatchResult aggregates a whole batch. Partial failure is normal data here,
// not an error.
type BatchResult struct {
	Total            int       `json:"total"`
	Succeeded        int       `json:"succeeded"`
	Failed           int       `json:"failed"`
	Outcomes         []Outcome `json:"outcomes"`
	CircuitTripped   bool      `json:"circuitTripped"`
	BytesTransferred int64     `json:"bytesTransferred"`
	DurationMs       int64     `json:"durationMs"`
}

// RetryPolicy controls per-item retry behaviour.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
	RetryableKinds    map[ErrorKind]bool
}

// DefaultRetryPolicy retries throttled and transient store failures up to
// three attempts with 200ms exponential backoff capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         200 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          5 * time.Second,
		RetryableKinds: map[ErrorKind]bool{
			KindStoreThrottled: true,
			KindStoreTransient: true,
		},
	}
}

// Retryable reports whether a failure of the given kind may be retried.
func (p RetryPolicy) Retryable(kind ErrorKind) bool {
	return p.RetryableKinds[kind]
}

// Delay returns the backoff before retrying after the given (1-based)
// attempt: min(base * multiplier^(attempt-1), max).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// storeKind maps a store classification onto the outcome taxonomy.
func storeKind(k store.Kind) ErrorKind {
	switch k {
	case store.KindThrottled:
		return KindStoreThrottled
	case store.KindTransient:
		return KindStoreTransient
	case store.KindPermissionDenied:
		return KindStorePermissionDenied
	case store.KindInvalidDestination:
		return KindStoreInvalidDestination
	default:
		return KindStoreFailed
	}
}
