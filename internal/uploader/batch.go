package uploader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/imagegate/imagegate/internal/config"
	"github.com/imagegate/imagegate/internal/store"
)

// Uploader runs upload batches against one object store. It is safe for
// concurrent use; each batch gets its own circuit breaker.
type Uploader struct {
	store       store.ObjectStore
	policy      RetryPolicy
	concurrency int

	failureThreshold int
	cooldown         time.Duration

	itemTimeout time.Duration
	maxFileSize int64
}

// Params configures an Uploader. Zero values fall back to the documented
// defaults.
type Params struct {
	Store            store.ObjectStore
	Policy           RetryPolicy
	Concurrency      int
	FailureThreshold int
	Cooldown         time.Duration
	ItemTimeout      time.Duration
	MaxFileSize      int64
}

// New creates an Uploader, clamping the concurrency limit to the hard cap.
func New(p Params) *Uploader {
	if p.Policy.MaxAttempts < 1 {
		p.Policy = DefaultRetryPolicy()
	}
	if p.Concurrency < 1 {
		p.Concurrency = config.DefaultConcurrency
	}
	if p.Concurrency > config.MaxConcurrency {
		p.Concurrency = config.MaxConcurrency
	}
	if p.FailureThreshold < 1 {
		p.FailureThreshold = config.DefaultFailureThreshold
	}
	if p.Cooldown <= 0 {
		p.Cooldown = config.DefaultCooldown
	}
	if p.ItemTimeout <= 0 {
		p.ItemTimeout = config.DefaultItemTimeout
	}
	if p.MaxFileSize <= 0 {
		p.MaxFileSize = config.DefaultMaxFileSize
	}

	return &Uploader{
		store:            p.Store,
		policy:           p.Policy,
		concurrency:      p.Concurrency,
		failureThreshold: p.FailureThreshold,
		cooldown:         p.Cooldown,
		itemTimeout:      p.ItemTimeout,
		maxFileSize:      p.MaxFileSize,
	}
}

// UploadSingle uploads one item with the full retry machinery and a fresh
// breaker, so a single call can never be poisoned by earlier state.
func (u *Uploader) UploadSingle(ctx context.Context, item Item, opts Options) (Outcome, error) {
	if err := validateOptions(opts); err != nil {
		return Outcome{}, err
	}
	breaker := NewCircuitBreaker(u.failureThreshold, u.cooldown)
	return u.runItem(ctx, item, opts, breaker), nil
}

// UploadBatch uploads items under the concurrency limit, preserving input
// order in the result. Per-item failures are captured in outcomes, never
// returned as errors; only a contract violation in opts errors out, and it
// does so before any task starts. Cancelling ctx stops launching new tasks
// and drains in-flight ones into Cancelled outcomes; every submitted item
// still yields exactly one outcome.
func (u *Uploader) UploadBatch(ctx context.Context, items []Item, opts Options, sink ProgressSink) (*BatchResult, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	result := &BatchResult{Total: len(items), Outcomes: []Outcome{}}
	if len(items) == 0 {
		return result, nil
	}

	start := time.Now()
	batchID := uuid.NewString()
	breaker := NewCircuitBreaker(u.failureThreshold, u.cooldown)

	limit := u.concurrency
	if opts.Concurrency > 0 {
		limit = opts.Concurrency
		if limit > config.MaxConcurrency {
			limit = config.MaxConcurrency
		}
	}

	log.Info().
		Str("batch_id", batchID).
		Int("items", len(items)).
		Int("concurrency", limit).
		Str("bucket", opts.Bucket).
		Msg("Batch upload started")

	outcomes := make([]Outcome, len(items))

	type completion struct {
		index   int
		outcome Outcome
	}
	done := make(chan completion)

	// Single consumer: stores outcomes at their input position and emits
	// progress in completion order.
	var consumerWG sync.WaitGroup
	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		completed := 0
		for c := range done {
			completed++
			outcomes[c.index] = c.outcome
			if sink != nil {
				sink.Report(Progress{Completed: completed, Total: len(items), Outcome: c.outcome})
			}
		}
	}()

	var wg sync.WaitGroup
	sem := make(chan struct{}, limit)

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it Item) {
			defer wg.Done()

			select {
			case sem <- struct{}{}: // Acquire semaphore
			case <-ctx.Done():
				done <- completion{idx, cancelledOutcome(it)}
				return
			}
			defer func() { <-sem }() // Release semaphore

			if ctx.Err() != nil {
				done <- completion{idx, cancelledOutcome(it)}
				return
			}
			done <- completion{idx, u.runItem(ctx, it, opts, breaker)}
		}(i, item)
	}

	wg.Wait()
	close(done)
	consumerWG.Wait()

	result.Outcomes = outcomes
	for _, out := range outcomes {
		if out.Success {
			result.Succeeded++
			result.BytesTransferred += out.BytesTransferred
		} else {
			result.Failed++
		}
	}
	result.CircuitTripped = breaker.Tripped()
	result.DurationMs = time.Since(start).Milliseconds()

	log.Info().
		Str("batch_id", batchID).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Bool("circuit_tripped", result.CircuitTripped).
		Int64("bytes", result.BytesTransferred).
		Dur("duration", time.Since(start)).
		Msg("Batch upload complete")

	return result, nil
}

// ListBuckets passes through to the store. No retry or breaker: a single
// idempotent read either works or reports its error directly.
func (u *Uploader) ListBuckets(ctx context.Context) ([]string, error) {
	return u.store.ListBuckets(ctx)
}

// cancelledOutcome finalizes an item that never ran.
func cancelledOutcome(item Item) Outcome {
	return Outcome{
		SourcePath: item.SourcePath,
		Success:    false,
		ErrorKind:  KindCancelled,
		Error:      "batch cancelled before item started",
	}
}

// validateOptions rejects contract violations before any task starts.
func validateOptions(opts Options) error {
	if opts.Bucket == "" {
		return fmt.Errorf("bucket name must not be empty")
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return fmt.Errorf("quality must be 1-100, got %d", opts.Quality)
	}
	if opts.MaxWidth < 1 || opts.MaxHeight < 1 {
		return fmt.Errorf("max dimensions must be positive, got %dx%d", opts.MaxWidth, opts.MaxHeight)
	}
	return nil
}
