package model

import (
	"time"

	"github.com/google/uuid"
)

// PageStatus is the outcome class of one page's decode attempt.
type PageStatus string

const (
	// PageStatusSuccess means the page was rasterized and decoded.
	// A page with zero QR codes is still a success.
	PageStatusSuccess PageStatus = "success"

	// PageStatusError means the page could not be rasterized or decoded.
	// The failure is recorded against this page only; other pages proceed.
	PageStatusError PageStatus = "error"
)

// PageOutcome is the per-page result entry. Outcomes are ordered by page
// index in the scan result regardless of the completion order of the
// concurrent page workers.
type PageOutcome struct {
	// Index is the 0-based page index.
	Index int `json:"index"`

	// Status is success or error.
	Status PageStatus `json:"status"`

	// CodeCount is the number of QR codes decoded on this page.
	CodeCount int `json:"code_count"`

	// ErrorDetail describes a page-level failure. Empty on success.
	ErrorDetail string `json:"error_detail,omitempty"`

	// CodeErrors records code regions that were detected but could not be
	// decoded (corrupted or unreadable). The page itself still counts as
	// success when other regions decoded cleanly.
	CodeErrors []string `json:"code_errors,omitempty"`
}

// URLVerdict pairs a final verdict with the provenance of the URL it
// applies to. There is exactly one entry per normalized URL in a scan,
// even when classification partially failed.
type URLVerdict struct {
	Verdict

	// Sources lists every page/code location that yielded this URL.
	Sources []Provenance `json:"sources"`
}

// ScanMetadata carries scan-level bookkeeping.
type ScanMetadata struct {
	// StartedAt is when the scan began.
	StartedAt time.Time `json:"started_at"`

	// DurationMS is the wall-clock duration of the scan in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// PageCount is the number of pages in the document.
	PageCount int `json:"page_count"`

	// CodeCount is the total number of QR codes decoded across all pages.
	CodeCount int `json:"code_count"`

	// URLCount is the number of distinct normalized URLs found.
	URLCount int `json:"url_count"`

	// DegradedCount is the number of verdicts produced without reputation
	// service data (heuristic-only).
	DegradedCount int `json:"degraded_count"`

	// TimedOut is true when the scan deadline expired before all pages
	// and URLs completed. Completed work is still present in the result.
	TimedOut bool `json:"timed_out,omitempty"`
}

// ScanResult is the complete, persistable outcome of one document scan.
//
// Invariants:
//   - len(Pages) equals the document's page count, ordered by index.
//   - every URL observed on a successfully decoded page has exactly one
//     entry in URLs, keyed by its normalized form.
type ScanResult struct {
	// ScanID uniquely identifies this scan invocation.
	ScanID string `json:"scan_id"`

	// DocumentID identifies the scanned document (name + content hash).
	DocumentID string `json:"document_id"`

	// Pages holds per-page outcomes in page order.
	Pages []PageOutcome `json:"pages"`

	// URLs maps each normalized URL to its final verdict and provenance.
	URLs map[string]URLVerdict `json:"urls"`

	// Metadata carries scan-level timing and counts.
	Metadata ScanMetadata `json:"metadata"`
}

// NewScanResult creates an empty result for the given document with a
// fresh scan ID and the start time stamped.
func NewScanResult(documentID string) *ScanResult {
	return &ScanResult{
		ScanID:     uuid.NewString(),
		DocumentID: documentID,
		Pages:      make([]PageOutcome, 0),
		URLs:       make(map[string]URLVerdict),
		Metadata: ScanMetadata{
			StartedAt: time.Now().UTC(),
		},
	}
}

// CategoryCounts returns the number of URLs per verdict category.
func (r *ScanResult) CategoryCounts() map[Category]int {
	counts := make(map[Category]int)
	for _, v := range r.URLs {
		counts[v.Category]++
	}
	return counts
}

// WorstCategory returns the most severe category present among the URL
// verdicts, or CategoryUnknown for a scan with no URLs.
func (r *ScanResult) WorstCategory() Category {
	worst := CategoryUnknown
	for _, v := range r.URLs {
		if v.Category.MoreSevereThan(worst) {
			worst = v.Category
		}
	}
	return worst
}

// FailedPages returns the outcomes with status error, in page order.
func (r *ScanResult) FailedPages() []PageOutcome {
	failed := make([]PageOutcome, 0)
	for _, p := range r.Pages {
		if p.Status == PageStatusError {
			failed = append(failed, p)
		}
	}
	return failed
}
