package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/docvet/qrscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the scan result in human-readable format.
func (w *SimpleWriter) Write(result *model.ScanResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	w.writeURLs(&sb, result)
	w.writePages(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.ScanResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       QR CODE SCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Document:   %s\n", result.DocumentID))
	sb.WriteString(fmt.Sprintf("Scan Date:  %s\n", result.Metadata.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %d ms\n", result.Metadata.DurationMS))
	sb.WriteString(fmt.Sprintf("Pages:      %d\n", result.Metadata.PageCount))

	switch {
	case result.Metadata.TimedOut:
		sb.WriteString("Status:     TIMED OUT (partial results)\n")
	case len(result.FailedPages()) > 0:
		sb.WriteString(fmt.Sprintf("Status:     Complete (%d page error(s))\n", len(result.FailedPages())))
	default:
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the category summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.ScanResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VERDICT SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	counts := result.CategoryCounts()
	sb.WriteString(fmt.Sprintf("  MALICIOUS:  %d\n", counts[model.CategoryMalicious]))
	sb.WriteString(fmt.Sprintf("  SUSPICIOUS: %d\n", counts[model.CategorySuspicious]))
	sb.WriteString(fmt.Sprintf("  BENIGN:     %d\n", counts[model.CategoryBenign]))
	sb.WriteString(fmt.Sprintf("  UNKNOWN:    %d\n", counts[model.CategoryUnknown]))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:      %d URL(s) from %d QR code(s)\n",
		len(result.URLs), result.Metadata.CodeCount))

	if result.Metadata.DegradedCount > 0 {
		sb.WriteString(fmt.Sprintf("  DEGRADED:   %d verdict(s) without reputation data\n",
			result.Metadata.DegradedCount))
	}
	sb.WriteString("\n")
}

// writeURLs writes the per-URL verdict section.
func (w *SimpleWriter) writeURLs(sb *strings.Builder, result *model.ScanResult) {
	if len(result.URLs) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("URL VERDICTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(result.URLs) == 0 {
		sb.WriteString("  No URLs detected\n\n")
		return
	}

	for _, url := range sortedURLs(result) {
		v := result.URLs[url]
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", w.categoryIndicator(v.Category), url))
		sb.WriteString(fmt.Sprintf("      Category:   %s (confidence %.2f, %s)\n",
			v.Category, v.Confidence, v.Source))
		sb.WriteString(fmt.Sprintf("      Found On:   %s\n", formatProvenance(v.Sources)))
		if w.verbose {
			sb.WriteString(fmt.Sprintf("      Evaluated:  %s\n",
				v.EvaluatedAt.Format("2006-01-02 15:04:05 MST")))
		}
	}
	sb.WriteString("\n")
}

// writePages writes the per-page outcome section. Pages with errors are
// always listed; clean pages only in verbose mode.
func (w *SimpleWriter) writePages(sb *strings.Builder, result *model.ScanResult) {
	failed := result.FailedPages()
	if len(failed) == 0 && !w.verbose && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, page := range result.Pages {
		if page.Status == model.PageStatusSuccess && len(page.CodeErrors) == 0 && !w.verbose {
			continue
		}
		sb.WriteString(fmt.Sprintf("  Page %d: %s (%d code(s))\n",
			page.Index+1, page.Status, page.CodeCount))
		if page.ErrorDetail != "" {
			sb.WriteString(fmt.Sprintf("      Error: %s\n", page.ErrorDetail))
		}
		for _, codeErr := range page.CodeErrors {
			sb.WriteString(fmt.Sprintf("      Unreadable code: %s\n", codeErr))
		}
	}
	sb.WriteString("\n")
}

// categoryIndicator returns a visual indicator for the category.
func (w *SimpleWriter) categoryIndicator(category model.Category) string {
	switch category {
	case model.CategoryMalicious:
		return "!!!"
	case model.CategorySuspicious:
		return "!!"
	case model.CategoryBenign:
		return "ok"
	case model.CategoryUnknown:
		return "?"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by qrscan\n")
	sb.WriteString("https://github.com/docvet/qrscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
