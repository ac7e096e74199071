package model

import (
	"testing"
	"time"
)

func urlVerdict(category Category) URLVerdict {
	return URLVerdict{
		Verdict: Verdict{
			Category:    category,
			Confidence:  0.4,
			Source:      SourceHeuristicOnly,
			EvaluatedAt: time.Now().UTC(),
		},
	}
}

func TestNewScanResult(t *testing.T) {
	t.Parallel()

	r := NewScanResult("invoice.pdf#5f3a9c01b2d4")

	if r.ScanID == "" {
		t.Error("ScanID not assigned")
	}
	if r.DocumentID != "invoice.pdf#5f3a9c01b2d4" {
		t.Errorf("DocumentID = %q", r.DocumentID)
	}
	if r.Pages == nil || r.URLs == nil {
		t.Error("collections must be initialized")
	}
	if r.Metadata.StartedAt.IsZero() {
		t.Error("StartedAt not stamped")
	}

	other := NewScanResult("invoice.pdf#5f3a9c01b2d4")
	if other.ScanID == r.ScanID {
		t.Error("two results share a scan ID")
	}
}

func TestScanResult_CategoryCounts(t *testing.T) {
	t.Parallel()

	r := NewScanResult("doc#000000000000")
	r.URLs["https://a.example"] = urlVerdict(CategoryBenign)
	r.URLs["https://b.example"] = urlVerdict(CategoryBenign)
	r.URLs["https://c.example"] = urlVerdict(CategorySuspicious)
	r.URLs["https://d.example"] = urlVerdict(CategoryMalicious)

	counts := r.CategoryCounts()
	if counts[CategoryBenign] != 2 {
		t.Errorf("benign count = %d, want 2", counts[CategoryBenign])
	}
	if counts[CategorySuspicious] != 1 {
		t.Errorf("suspicious count = %d, want 1", counts[CategorySuspicious])
	}
	if counts[CategoryMalicious] != 1 {
		t.Errorf("malicious count = %d, want 1", counts[CategoryMalicious])
	}
	if counts[CategoryUnknown] != 0 {
		t.Errorf("unknown count = %d, want 0", counts[CategoryUnknown])
	}
}

func TestScanResult_WorstCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		categories []Category
		want       Category
	}{
		{"no urls", nil, CategoryUnknown},
		{"all benign", []Category{CategoryBenign, CategoryBenign}, CategoryBenign},
		{"suspicious wins over benign", []Category{CategoryBenign, CategorySuspicious}, CategorySuspicious},
		{"malicious wins over all", []Category{CategoryBenign, CategorySuspicious, CategoryMalicious}, CategoryMalicious},
		{"unknown only", []Category{CategoryUnknown}, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewScanResult("doc#000000000000")
			for i, c := range tt.categories {
				r.URLs[string(rune('a'+i))+".example"] = urlVerdict(c)
			}
			if got := r.WorstCategory(); got != tt.want {
				t.Errorf("WorstCategory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanResult_FailedPages(t *testing.T) {
	t.Parallel()

	r := NewScanResult("doc#000000000000")
	r.Pages = []PageOutcome{
		{Index: 0, Status: PageStatusSuccess, CodeCount: 2},
		{Index: 1, Status: PageStatusError, ErrorDetail: "rasterize: corrupt page stream"},
		{Index: 2, Status: PageStatusSuccess},
		{Index: 3, Status: PageStatusError, ErrorDetail: "timeout: scan deadline expired before page completed"},
	}

	failed := r.FailedPages()
	if len(failed) != 2 {
		t.Fatalf("len(FailedPages()) = %d, want 2", len(failed))
	}
	if failed[0].Index != 1 || failed[1].Index != 3 {
		t.Errorf("FailedPages() indexes = [%d %d], want [1 3]", failed[0].Index, failed[1].Index)
	}
}
