package pipeline

import (
	"image"
	"time"

	"github.com/docvet/qrscan/internal/model"
	"github.com/docvet/qrscan/internal/rasterize"
)

// Stage is the pipeline state machine position of one scan.
type Stage int

const (
	// StageLoading opens the document and establishes its identity.
	// This is the only stage whose failure is fatal to the scan.
	StageLoading Stage = iota

	// StageRasterizing renders pages into images across the worker pool.
	StageRasterizing

	// StageDecoding extracts QR codes from the page images.
	StageDecoding

	// StageExtracting normalizes and deduplicates URL candidates.
	StageExtracting

	// StageClassifying resolves a verdict for each candidate.
	StageClassifying

	// StageAggregating folds outcomes and verdicts into the result.
	StageAggregating

	// StageDone means the scan completed and Result is populated.
	StageDone

	// StageFailed means document loading failed; no result exists.
	StageFailed
)

// String returns the stage name for logging.
func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "loading"
	case StageRasterizing:
		return "rasterizing"
	case StageDecoding:
		return "decoding"
	case StageExtracting:
		return "extracting"
	case StageClassifying:
		return "classifying"
	case StageAggregating:
		return "aggregating"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// pageState accumulates everything known about one page as it moves
// through the stages. Exactly one of the terminal conditions holds at
// aggregation: decoded (possibly zero codes), failed with err, or timed
// out before completion.
type pageState struct {
	// img is the rasterized page, present only between the rasterizing
	// and decoding stages. Decoding discards it.
	img image.Image

	// codes are the QR codes decoded on this page.
	codes []model.DetectedCode

	// codeErrors records detected-but-undecodable code regions. The page
	// can still be a success.
	codeErrors []string

	// err is a page-level rasterize or decode failure.
	err error

	// timedOut marks a page the scan deadline expired on.
	timedOut bool
}

// Scan is the working state of one document scan. It is created per
// invocation, threaded through the pipeline steps, and discarded after
// the result is extracted. The pipeline owns the lifetime of everything
// here except the verdict cache, which is process-wide.
type Scan struct {
	// Path is the document's filesystem path.
	Path string

	// Stage is the current state machine position.
	Stage Stage

	// Document is populated by the loading stage.
	Document model.Document

	// Result is populated by the aggregating stage, and is nil if and
	// only if the scan failed during loading.
	Result *model.ScanResult

	// Err holds the fatal loading error for a failed scan.
	Err error

	startedAt  time.Time
	doc        rasterize.Document
	pages      []pageState
	candidates map[string]*model.URLCandidate
	verdicts   map[string]model.Verdict
}

// NewScan creates the working state for scanning the document at path.
func NewScan(path string) *Scan {
	return &Scan{
		Path:      path,
		Stage:     StageLoading,
		startedAt: time.Now().UTC(),
	}
}
