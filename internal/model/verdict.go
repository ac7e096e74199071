package model

import (
	"fmt"
	"time"
)

// Category is the risk classification of a URL.
//
// Design decision: We use typed string constants rather than iota integers
// because categories appear verbatim in JSON reports and database rows.
// String constants round-trip through both without marshaling glue, and
// Severity() provides the ordering where comparisons are needed.
type Category string

const (
	// CategoryUnknown means no reputation data and no heuristic signal.
	CategoryUnknown Category = "unknown"

	// CategoryBenign means the URL is considered safe.
	CategoryBenign Category = "benign"

	// CategorySuspicious means the URL shows risk indicators that warrant
	// manual review before the document is distributed.
	CategorySuspicious Category = "suspicious"

	// CategoryMalicious means the URL is classified as actively harmful.
	CategoryMalicious Category = "malicious"
)

// ParseCategory converts a string into a Category.
// It returns an error for values outside the known set so that malformed
// database rows or API responses are caught at the boundary.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryUnknown, CategoryBenign, CategorySuspicious, CategoryMalicious:
		return Category(s), nil
	default:
		return CategoryUnknown, fmt.Errorf("unknown risk category: %q", s)
	}
}

// Severity returns the ordering rank of the category for the
// more-severe-wins precedence rule: malicious > suspicious > benign > unknown.
func (c Category) Severity() int {
	switch c {
	case CategoryMalicious:
		return 3
	case CategorySuspicious:
		return 2
	case CategoryBenign:
		return 1
	default:
		return 0
	}
}

// MoreSevereThan reports whether c ranks strictly above other.
func (c Category) MoreSevereThan(other Category) bool {
	return c.Severity() > other.Severity()
}

// Source records how a verdict was obtained.
type Source string

const (
	// SourceCacheHit means the verdict came from a still-fresh cache entry.
	SourceCacheHit Source = "cache-hit"

	// SourceLiveLookup means the verdict came from a live reputation
	// service query completed during this resolve.
	SourceLiveLookup Source = "live-lookup"

	// SourceHeuristicOnly means the reputation service was unavailable or
	// unconfigured and the verdict is the local heuristic score alone.
	SourceHeuristicOnly Source = "heuristic-only"
)

// Confidence boundaries separating live verdicts from heuristic fallbacks.
//
// Any verdict backed by the reputation service carries confidence
// >= LiveConfidenceFloor, and any heuristic-only verdict carries
// confidence < HeuristicConfidenceCap. Keeping the cap below the floor
// guarantees that degraded verdicts are always distinguishable by
// confidence alone, which downstream gating relies on.
const (
	LiveConfidenceFloor    = 0.5
	HeuristicConfidenceCap = 0.45
)

// Verdict is the final risk assessment for one normalized URL.
type Verdict struct {
	// Category is the assessed risk class.
	Category Category `json:"category"`

	// Confidence is in [0,1]. Heuristic-only verdicts stay below
	// HeuristicConfidenceCap; service-backed verdicts start at
	// LiveConfidenceFloor.
	Confidence float64 `json:"confidence"`

	// Source records how the verdict was obtained.
	Source Source `json:"source"`

	// EvaluatedAt is when the underlying assessment was made. For cache
	// hits this is the original lookup time, not the resolve time.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Degraded reports whether the verdict was produced without reputation
// service data.
func (v Verdict) Degraded() bool {
	return v.Source == SourceHeuristicOnly
}
