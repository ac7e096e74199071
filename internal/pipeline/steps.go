package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docvet/qrscan/internal/classify"
	"github.com/docvet/qrscan/internal/extract"
	"github.com/docvet/qrscan/internal/model"
	"github.com/docvet/qrscan/internal/qr"
	"github.com/docvet/qrscan/internal/rasterize"
)

// Default worker pool sizes. Rasterizing and decoding are CPU-bound, so
// the page pool stays small; classification blocks on reputation lookups,
// so it gets more slots but stays bounded to respect service rate limits.
const (
	DefaultPageConcurrency     = 4
	DefaultClassifyConcurrency = 8
)

// LoadStep opens the document, establishes its content-hash identity, and
// allocates per-page state. An unreadable document is the only condition
// that fails the whole scan.
type LoadStep struct {
	rasterizer rasterize.Rasterizer
	logger     *slog.Logger
}

// NewLoadStep creates the loading step.
func NewLoadStep(rasterizer rasterize.Rasterizer, logger *slog.Logger) *LoadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadStep{rasterizer: rasterizer, logger: logger}
}

// Name returns the step name.
func (s *LoadStep) Name() string { return "load" }

// Stage returns the state machine stage.
func (s *LoadStep) Stage() Stage { return StageLoading }

// Do opens the document and populates the scan's document identity.
func (s *LoadStep) Do(_ context.Context, scan *Scan) error {
	id, err := model.DocumentID(scan.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentLoad, err)
	}

	doc, err := s.rasterizer.Open(scan.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentLoad, err)
	}

	scan.doc = doc
	scan.Document = model.Document{
		ID:        id,
		Path:      scan.Path,
		PageCount: doc.PageCount(),
	}
	scan.pages = make([]pageState, doc.PageCount())

	s.logger.Info("document loaded",
		"document", id,
		"pages", doc.PageCount(),
	)
	return nil
}

// RasterizeStep renders every page into an image across a bounded worker
// pool. A page that fails to render is recorded with a page-scoped error;
// a page the deadline expires on is marked timed out. The document handle
// is closed when rasterizing finishes, successful or not.
type RasterizeStep struct {
	concurrency int
	logger      *slog.Logger
}

// NewRasterizeStep creates the rasterizing step.
func NewRasterizeStep(concurrency int, logger *slog.Logger) *RasterizeStep {
	if concurrency <= 0 {
		concurrency = DefaultPageConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RasterizeStep{concurrency: concurrency, logger: logger}
}

// Name returns the step name.
func (s *RasterizeStep) Name() string { return "rasterize" }

// Stage returns the state machine stage.
func (s *RasterizeStep) Stage() Stage { return StageRasterizing }

// Do rasterizes all pages.
func (s *RasterizeStep) Do(ctx context.Context, scan *Scan) error {
	defer func() {
		if err := scan.doc.Close(); err != nil {
			s.logger.Warn("failed to close document", "document", scan.Document.ID, "error", err)
		}
		scan.doc = nil
	}()

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i := range scan.pages {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				scan.pages[i].timedOut = true
				return nil
			default:
			}

			img, err := scan.doc.Image(i)
			if err != nil {
				scan.pages[i].err = fmt.Errorf("rasterize: %w", err)
				return nil
			}
			scan.pages[i].img = img
			return nil
		})
	}

	return g.Wait()
}

// DecodeStep extracts QR codes from the rasterized pages across a bounded
// worker pool. Page images are discarded as soon as their page is
// decoded. Corrupted code regions are recorded against the page without
// failing it; only a page whose image cannot be processed at all gets an
// error outcome.
type DecodeStep struct {
	decoder     qr.Decoder
	concurrency int
	logger      *slog.Logger
}

// NewDecodeStep creates the decoding step.
func NewDecodeStep(decoder qr.Decoder, concurrency int, logger *slog.Logger) *DecodeStep {
	if concurrency <= 0 {
		concurrency = DefaultPageConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DecodeStep{decoder: decoder, concurrency: concurrency, logger: logger}
}

// Name returns the step name.
func (s *DecodeStep) Name() string { return "decode" }

// Stage returns the state machine stage.
func (s *DecodeStep) Stage() Stage { return StageDecoding }

// Do decodes all rasterized pages.
func (s *DecodeStep) Do(ctx context.Context, scan *Scan) error {
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i := range scan.pages {
		g.Go(func() error {
			page := &scan.pages[i]
			if page.err != nil || page.timedOut {
				return nil
			}
			defer func() { page.img = nil }()

			select {
			case <-ctx.Done():
				page.timedOut = true
				return nil
			default:
			}

			detections, err := s.decoder.Decode(ctx, page.img)
			switch {
			case err == nil:
				// Zero detections is a successful empty page.
			case qr.IsCorrupted(err):
				page.codeErrors = append(page.codeErrors, err.Error())
			case ctx.Err() != nil:
				page.timedOut = true
				return nil
			default:
				page.err = fmt.Errorf("decode: %w", err)
				return nil
			}

			page.codes = make([]model.DetectedCode, 0, len(detections))
			for _, d := range detections {
				page.codes = append(page.codes, model.DetectedCode{
					PageIndex: i,
					Bounds:    d.Bounds,
					Payload:   d.Payload,
				})
			}

			s.logger.Debug("page decoded",
				"document", scan.Document.ID,
				"page", i,
				"codes", len(page.codes),
			)
			return nil
		})
	}

	return g.Wait()
}

// ExtractStep turns decoded codes from all successful pages into
// normalized, deduplicated URL candidates. Pure CPU work, no pool.
type ExtractStep struct {
	logger *slog.Logger
}

// NewExtractStep creates the extracting step.
func NewExtractStep(logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string { return "extract" }

// Stage returns the state machine stage.
func (s *ExtractStep) Stage() Stage { return StageExtracting }

// Do extracts URL candidates from the decoded codes.
func (s *ExtractStep) Do(_ context.Context, scan *Scan) error {
	codes := make([]model.DetectedCode, 0)
	for i := range scan.pages {
		page := &scan.pages[i]
		if page.err != nil || page.timedOut {
			continue
		}
		codes = append(codes, page.codes...)
	}

	scan.candidates = extract.Extract(codes)

	s.logger.Info("url candidates extracted",
		"document", scan.Document.ID,
		"codes", len(codes),
		"candidates", len(scan.candidates),
	)
	return nil
}

// ClassifyStep resolves a verdict for every URL candidate across a
// bounded worker pool. The classifier never fails, so every candidate is
// guaranteed a verdict; a cancelled context simply degrades the remaining
// lookups to heuristic-only.
type ClassifyStep struct {
	classifier  *classify.Classifier
	concurrency int
	logger      *slog.Logger
}

// NewClassifyStep creates the classifying step.
func NewClassifyStep(classifier *classify.Classifier, concurrency int, logger *slog.Logger) *ClassifyStep {
	if concurrency <= 0 {
		concurrency = DefaultClassifyConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyStep{classifier: classifier, concurrency: concurrency, logger: logger}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string { return "classify" }

// Stage returns the state machine stage.
func (s *ClassifyStep) Stage() Stage { return StageClassifying }

// Do classifies every URL candidate.
func (s *ClassifyStep) Do(ctx context.Context, scan *Scan) error {
	scan.verdicts = make(map[string]model.Verdict, len(scan.candidates))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for url := range scan.candidates {
		g.Go(func() error {
			verdict := s.classifier.Classify(ctx, url)

			mu.Lock()
			scan.verdicts[url] = verdict
			mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}

// AggregateStep folds per-page outcomes and per-URL verdicts into the
// final scan result. Page outcomes keep original page order regardless of
// worker completion order.
type AggregateStep struct {
	logger *slog.Logger
}

// NewAggregateStep creates the aggregating step.
func NewAggregateStep(logger *slog.Logger) *AggregateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AggregateStep{logger: logger}
}

// Name returns the step name.
func (s *AggregateStep) Name() string { return "aggregate" }

// Stage returns the state machine stage.
func (s *AggregateStep) Stage() Stage { return StageAggregating }

// Do assembles the scan result.
func (s *AggregateStep) Do(_ context.Context, scan *Scan) error {
	result := model.NewScanResult(scan.Document.ID)
	result.Metadata.StartedAt = scan.startedAt
	result.Metadata.PageCount = scan.Document.PageCount

	codeCount := 0
	timedOut := false
	for i := range scan.pages {
		page := &scan.pages[i]
		outcome := model.PageOutcome{
			Index:      i,
			Status:     model.PageStatusSuccess,
			CodeCount:  len(page.codes),
			CodeErrors: page.codeErrors,
		}
		switch {
		case page.timedOut:
			outcome.Status = model.PageStatusError
			outcome.ErrorDetail = "timeout: scan deadline expired before page completed"
			timedOut = true
		case page.err != nil:
			outcome.Status = model.PageStatusError
			outcome.ErrorDetail = page.err.Error()
		}
		codeCount += len(page.codes)
		result.Pages = append(result.Pages, outcome)
	}

	degraded := 0
	for url, candidate := range scan.candidates {
		verdict, ok := scan.verdicts[url]
		if !ok {
			// Classification guarantees a verdict per candidate; if one is
			// ever missing the result still must carry an entry, degraded
			// rather than absent.
			verdict = model.Verdict{
				Category:    model.CategoryUnknown,
				Source:      model.SourceHeuristicOnly,
				EvaluatedAt: time.Now().UTC(),
			}
		}
		if verdict.Degraded() {
			degraded++
		}
		result.URLs[url] = model.URLVerdict{
			Verdict: verdict,
			Sources: candidate.Sources,
		}
	}

	result.Metadata.CodeCount = codeCount
	result.Metadata.URLCount = len(result.URLs)
	result.Metadata.DegradedCount = degraded
	result.Metadata.TimedOut = timedOut
	result.Metadata.DurationMS = time.Since(scan.startedAt).Milliseconds()

	scan.Result = result

	s.logger.Info("scan aggregated",
		"document", scan.Document.ID,
		"pages", len(result.Pages),
		"urls", result.Metadata.URLCount,
		"degraded", result.Metadata.DegradedCount,
		"duration_ms", result.Metadata.DurationMS,
	)
	return nil
}

// Config carries the pipeline tuning knobs for DefaultPipeline.
type Config struct {
	// PageConcurrency bounds the rasterize/decode worker pool.
	PageConcurrency int

	// ClassifyConcurrency bounds the classification worker pool.
	ClassifyConcurrency int
}

// DefaultPipeline wires the standard scan sequence with the given
// collaborators.
func DefaultPipeline(
	rasterizer rasterize.Rasterizer,
	decoder qr.Decoder,
	classifier *classify.Classifier,
	cfg Config,
	opts ...Option,
) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewLoadStep(rasterizer, p.logger),
		NewRasterizeStep(cfg.PageConcurrency, p.logger),
		NewDecodeStep(decoder, cfg.PageConcurrency, p.logger),
		NewExtractStep(p.logger),
		NewClassifyStep(classifier, cfg.ClassifyConcurrency, p.logger),
		NewAggregateStep(p.logger),
	)
	return p
}
