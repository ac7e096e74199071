package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor scans multiple documents concurrently. Each document
// gets a fresh pipeline from the factory so no per-scan state leaks
// between documents; the verdict cache shared by the classifiers is the
// only cross-scan state, and it is safe by its single-flight contract.
type BatchProcessor struct {
	pipelineFactory func() *Pipeline
	concurrency     int
	scanTimeout     time.Duration
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchConcurrency sets the maximum number of documents scanned at
// once. Default is 2: each scan already runs its own page workers.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithScanTimeout gives every document in the batch its own deadline,
// counted from when its scan starts rather than from batch start. A slow
// document therefore cannot consume the budget of the documents queued
// behind it. Zero means no per-document deadline.
func WithScanTimeout(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if d > 0 {
			b.scanTimeout = d
		}
	}
}

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     2,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scans the documents at the given paths. Scans are
// failure-isolated from each other: a document that fails to load is
// returned as a failed Scan without affecting the rest. The returned
// slice preserves input order regardless of completion order.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]*Scan, error) {
	bp.logger.Info("starting batch scan",
		"documents", len(paths),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	scans := make([]*Scan, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			scan := NewScan(path)
			scans[i] = scan

			scanCtx := ctx
			if bp.scanTimeout > 0 {
				var cancel context.CancelFunc
				scanCtx, cancel = context.WithTimeout(ctx, bp.scanTimeout)
				defer cancel()
			}

			p := bp.pipelineFactory()
			if err := p.Execute(scanCtx, scan); err != nil {
				// Fatal load error; recorded on the scan, other documents
				// proceed.
				bp.logger.Warn("document scan failed",
					"document", path,
					"error", err,
				)
			}
			return nil
		})
	}

	// Goroutines never return errors; Wait just joins them.
	_ = g.Wait()

	bp.logger.Info("batch scan complete",
		"documents", len(paths),
		"elapsed", time.Since(startTime),
	)

	return scans, ctx.Err()
}
