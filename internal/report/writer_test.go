package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docvet/qrscan/internal/model"
)

func sampleResult() *model.ScanResult {
	result := model.NewScanResult("invoice.pdf#3a1b9cde0f12")
	result.ScanID = "0b7f2c9e-1111-2222-3333-444455556666"
	result.Metadata.StartedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	result.Metadata.DurationMS = 812
	result.Metadata.PageCount = 3
	result.Metadata.CodeCount = 3
	result.Metadata.URLCount = 2
	result.Metadata.DegradedCount = 1

	result.Pages = []model.PageOutcome{
		{Index: 0, Status: model.PageStatusSuccess, CodeCount: 2},
		{Index: 1, Status: model.PageStatusError, ErrorDetail: "rasterize: corrupt page stream"},
		{Index: 2, Status: model.PageStatusSuccess, CodeCount: 1, CodeErrors: []string{"checksum mismatch"}},
	}

	result.URLs = map[string]model.URLVerdict{
		"https://example.com/a": {
			Verdict: model.Verdict{
				Category:    model.CategoryBenign,
				Confidence:  0.92,
				Source:      model.SourceLiveLookup,
				EvaluatedAt: time.Date(2026, 3, 14, 9, 26, 54, 0, time.UTC),
			},
			Sources: []model.Provenance{{PageIndex: 0, CodeIndex: 0}, {PageIndex: 0, CodeIndex: 1}},
		},
		"https://bit.ly/3xyz": {
			Verdict: model.Verdict{
				Category:    model.CategorySuspicious,
				Confidence:  0.31,
				Source:      model.SourceHeuristicOnly,
				EvaluatedAt: time.Date(2026, 3, 14, 9, 26, 54, 0, time.UTC),
			},
			Sources: []model.Provenance{{PageIndex: 2, CodeIndex: 0}},
		},
	}

	return result
}

func TestJSONWriter_Write(t *testing.T) {
	t.Parallel()

	t.Run("compact output round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		n, err := w.Write(sampleResult())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() n = %d, buffer has %d bytes", n, buf.Len())
		}

		var got model.ScanResult
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.DocumentID != "invoice.pdf#3a1b9cde0f12" {
			t.Errorf("DocumentID = %q", got.DocumentID)
		}
		if len(got.URLs) != 2 {
			t.Errorf("len(URLs) = %d, want 2", len(got.URLs))
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(sampleResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"scan_id\"") {
			t.Error("pretty printed output should contain indented fields")
		}
	})

	t.Run("version envelope", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("1.2.3"))

		if _, err := w.Write(sampleResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var envelope struct {
			Version string            `json:"version"`
			Result  *model.ScanResult `json:"result"`
		}
		if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
			t.Fatalf("envelope is not valid JSON: %v", err)
		}
		if envelope.Version != "1.2.3" {
			t.Errorf("Version = %q, want 1.2.3", envelope.Version)
		}
		if envelope.Result == nil || envelope.Result.ScanID != "0b7f2c9e-1111-2222-3333-444455556666" {
			t.Error("envelope should carry the full result")
		}
	})
}

func TestMarkdownWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(sampleResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# QR Code Scan Report",
		"invoice.pdf#3a1b9cde0f12",
		"## Verdict Summary",
		"## URL Verdicts",
		"https://bit.ly/3xyz",
		"https://example.com/a",
		"## Pages",
		"rasterize: corrupt page stream",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}

	// Suspicious URLs present, no malicious: expect a warning alert.
	if !strings.Contains(out, "[!WARNING]") {
		t.Error("expected warning alert for suspicious URLs")
	}

	// Suspicious sorts before benign in the URL table.
	if strings.Index(out, "bit.ly/3xyz") > strings.Index(out, "example.com/a") {
		t.Error("URLs should be ordered worst category first")
	}
}

func TestMarkdownWriter_NoURLs(t *testing.T) {
	t.Parallel()

	result := model.NewScanResult("empty.pdf#aabbccddeeff")
	result.Pages = []model.PageOutcome{{Index: 0, Status: model.PageStatusSuccess}}
	result.Metadata.PageCount = 1

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(result); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if !strings.Contains(buf.String(), "No URLs detected.") {
		t.Error("expected empty-URL notice")
	}
	if !strings.Contains(buf.String(), "[!TIP]") {
		t.Error("expected tip alert when no URLs found")
	}
}

func TestSimpleWriter_Write(t *testing.T) {
	t.Parallel()

	t.Run("default output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		n, err := w.Write(sampleResult())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() n = %d, buffer has %d bytes", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"QR CODE SCAN REPORT",
			"VERDICT SUMMARY",
			"SUSPICIOUS: 1",
			"BENIGN:     1",
			"URL VERDICTS",
			"https://bit.ly/3xyz",
			"Page 2: error",
			"rasterize: corrupt page stream",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("simple output missing %q", want)
			}
		}
	})

	t.Run("verbose lists clean pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(sampleResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "Page 1: success") {
			t.Error("verbose output should list clean pages")
		}
	})
}

// failWriter fails on the first write to exercise MultiWriter error
// propagation.
type failWriter struct{}

func (failWriter) Write(*model.ScanResult) (int, error) {
	return 0, errors.New("write failed")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

		if _, err := mw.Write(sampleResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("both writers should receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(failWriter{}, NewSimpleWriter(&buf))

		if _, err := mw.Write(sampleResult()); err == nil {
			t.Fatal("Write() expected error from failing writer")
		}
		if buf.Len() != 0 {
			t.Error("writers after a failure should not be invoked")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "abc", 10, "abc"},
		{"exact length unchanged", "abcdefghij", 10, "abcdefghij"},
		{"long string truncated", "abcdefghijk", 10, "abcdefg..."},
		{"tiny max", "abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
