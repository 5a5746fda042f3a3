package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/imagegate/imagegate/internal/store"
	"github.com/imagegate/imagegate/internal/transcode"
)

// runItem carries one item through read → transcode → store with retry,
// bounded by the per-item deadline and gated by the shared breaker. It always
// returns an outcome; errors never escape.
func (u *Uploader) runItem(ctx context.Context, item Item, opts Options, breaker *CircuitBreaker) Outcome {
	start := time.Now()
	out := Outcome{SourcePath: item.SourcePath}

	ctx, cancel := context.WithTimeout(ctx, u.itemTimeout)
	defer cancel()

	// Source access failures are final; there is nothing to retry.
	data, kind, err := u.readSource(item.SourcePath)
	if err != nil {
		return finish(out, start, kind, err)
	}

	payload, contentType, contentEncoding, optimized, note := u.prepare(data, item.SourcePath, opts)

	key := item.DestinationKey
	if key == "" {
		key = DeriveKey(item.SourcePath, item.FolderPrefix, data)
	}
	out.Key = key
	out.ContentType = contentType
	out.Note = note

	metadata := map[string]string{
		"uploaded-at":       time.Now().UTC().Format(time.RFC3339),
		"original-filename": filepath.Base(item.SourcePath),
		"optimized":         strconv.FormatBool(optimized),
		"quality":           strconv.Itoa(opts.Quality),
	}
	if captured, ok := transcode.CaptureDate(data); ok {
		metadata["captured-at"] = captured.UTC().Format(time.RFC3339)
	}

	in := store.PutInput{
		Bucket:          opts.Bucket,
		Key:             key,
		Body:            payload,
		ContentType:     contentType,
		ContentEncoding: contentEncoding,
		Metadata:        metadata,
	}

	for attempt := 1; attempt <= u.policy.MaxAttempts; attempt++ {
		if !breaker.Allow() {
			return finish(out, start, KindCircuitOpen,
				fmt.Errorf("circuit breaker open, destination unhealthy"))
		}

		out.Attempts = attempt
		res, err := u.store.Put(ctx, in)
		if err == nil {
			breaker.Record(true)
			out.Success = true
			out.URL = res.URL
			out.BytesTransferred = res.Bytes
			out.DurationMs = time.Since(start).Milliseconds()
			log.Debug().
				Str("source", item.SourcePath).
				Str("key", key).
				Int("attempts", attempt).
				Int64("bytes", res.Bytes).
				Msg("Item uploaded")
			return out
		}
		breaker.Record(false)

		// The deadline or a caller cancel beats any store classification.
		if ctxKind, ok := contextKind(ctx); ok {
			return finish(out, start, ctxKind, err)
		}

		kind := storeKind(store.Classify(err))
		if !u.policy.Retryable(kind) || attempt == u.policy.MaxAttempts {
			return finish(out, start, kind, err)
		}

		delay := u.policy.Delay(attempt)
		log.Debug().
			Str("source", item.SourcePath).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("kind", string(kind)).
			Msg("Retrying upload after backoff")
		if err := sleepCtx(ctx, delay); err != nil {
			ctxKind, _ := contextKind(ctx)
			return finish(out, start, ctxKind, err)
		}
	}

	// Unreachable: the loop always returns.
	return finish(out, start, KindStoreFailed, fmt.Errorf("retries exhausted"))
}

// readSource loads the item's bytes, enforcing format and size limits.
func (u *Uploader) readSource(path string) ([]byte, ErrorKind, error) {
	if !transcode.IsSupported(path) {
		return nil, KindSourceUnreadable, fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, KindSourceUnreadable, fmt.Errorf("stat source: %w", err)
	}
	if info.Size() > u.maxFileSize {
		return nil, KindSourceUnreadable,
			fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), u.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, KindSourceUnreadable, fmt.Errorf("read source: %w", err)
	}
	return data, "", nil
}

// prepare runs the optional transcode step. A transcode failure degrades
// gracefully: the original bytes are uploaded and the note records it.
func (u *Uploader) prepare(data []byte, sourcePath string, opts Options) (payload []byte, contentType, contentEncoding string, optimized bool, note string) {
	payload = data
	contentType = transcode.ContentType(sourcePath)

	if !opts.Optimize {
		return payload, contentType, "", false, ""
	}

	res, err := transcode.Optimize(data, filepath.Base(sourcePath), transcode.Options{
		Quality:   opts.Quality,
		MaxWidth:  opts.MaxWidth,
		MaxHeight: opts.MaxHeight,
	})
	if err != nil {
		log.Warn().Err(err).Str("source", sourcePath).Msg("Optimization failed, uploading original bytes")
		return payload, contentType, "", false, string(KindTranscodeFailed) + ": uploaded original bytes"
	}

	return res.Data, res.ContentType, res.ContentEncoding, res.Optimized, ""
}

// finish stamps a failed outcome with its kind, message, and duration.
func finish(out Outcome, start time.Time, kind ErrorKind, err error) Outcome {
	out.Success = false
	out.ErrorKind = kind
	if err != nil {
		out.Error = err.Error()
	}
	out.DurationMs = time.Since(start).Milliseconds()
	return out
}

// contextKind maps a context's terminal state to an error kind.
func contextKind(ctx context.Context) (ErrorKind, bool) {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return KindTimeout, true
	case context.Canceled:
		return KindCancelled, true
	default:
		return "", false
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
