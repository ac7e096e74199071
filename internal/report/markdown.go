package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/docvet/qrscan/internal/model"
)

// MarkdownWriter outputs scan results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the scan result in Markdown format.
func (w *MarkdownWriter) Write(result *model.ScanResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeURLs(md, result)
	w.writePages(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.ScanResult) {
	md.H1("QR Code Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Document", "`" + result.DocumentID + "`"},
			{"Scan ID", "`" + result.ScanID + "`"},
			{"Scan Date", result.Metadata.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", fmt.Sprintf("%d ms", result.Metadata.DurationMS)},
			{"Pages", strconv.Itoa(result.Metadata.PageCount)},
			{"QR Codes", strconv.Itoa(result.Metadata.CodeCount)},
			{"Distinct URLs", strconv.Itoa(result.Metadata.URLCount)},
			{"Status", w.statusText(result)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on the scan outcome.
func (w *MarkdownWriter) statusText(result *model.ScanResult) string {
	if result.Metadata.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if len(result.FailedPages()) > 0 {
		return "⚠️ Complete with page errors"
	}
	return "✅ Complete"
}

// writeSummary writes the verdict summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("Verdict Summary")
	md.PlainText("")

	counts := result.CategoryCounts()
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Count"},
		Rows: [][]string{
			{"🔴 Malicious", strconv.Itoa(counts[model.CategoryMalicious])},
			{"🟠 Suspicious", strconv.Itoa(counts[model.CategorySuspicious])},
			{"🟢 Benign", strconv.Itoa(counts[model.CategoryBenign])},
			{"⚪ Unknown", strconv.Itoa(counts[model.CategoryUnknown])},
			{"**Total**", "**" + strconv.Itoa(len(result.URLs)) + "**"},
		},
	})
	md.PlainText("")

	if len(result.URLs) > 0 {
		w.writePieChart(md, counts)
	}

	w.writeAlert(md, result, counts)
}

// writePieChart writes a mermaid pie chart for the category distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Category]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URL Verdict Distribution"),
		piechart.WithShowData(true),
	)

	if counts[model.CategoryMalicious] > 0 {
		chart.LabelAndIntValue("Malicious", uint64(counts[model.CategoryMalicious]))
	}
	if counts[model.CategorySuspicious] > 0 {
		chart.LabelAndIntValue("Suspicious", uint64(counts[model.CategorySuspicious]))
	}
	if counts[model.CategoryBenign] > 0 {
		chart.LabelAndIntValue("Benign", uint64(counts[model.CategoryBenign]))
	}
	if counts[model.CategoryUnknown] > 0 {
		chart.LabelAndIntValue("Unknown", uint64(counts[model.CategoryUnknown]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the worst category.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.ScanResult, counts map[model.Category]int) {
	switch {
	case counts[model.CategoryMalicious] > 0:
		md.Cautionf(
			"Malicious URLs detected! %d URL(s) should not be opened.",
			counts[model.CategoryMalicious],
		)
	case counts[model.CategorySuspicious] > 0:
		md.Warningf(
			"Suspicious URLs detected. %d URL(s) warrant caution before opening.",
			counts[model.CategorySuspicious],
		)
	case result.Metadata.DegradedCount > 0:
		md.Importantf(
			"%d verdict(s) were produced without reputation data and carry reduced confidence.",
			result.Metadata.DegradedCount,
		)
	case len(result.URLs) > 0:
		md.Note("All detected URLs were assessed as benign or unknown.")
	default:
		md.Tip("No QR code URLs were found in this document.")
	}
	md.PlainText("")
}

// writeURLs writes the per-URL verdict table, worst category first.
func (w *MarkdownWriter) writeURLs(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("URL Verdicts")
	md.PlainText("")

	if len(result.URLs) == 0 {
		md.PlainText("No URLs detected.")
		md.PlainText("")
		return
	}

	urls := sortedURLs(result)
	rows := make([][]string, 0, len(urls))
	for _, url := range urls {
		v := result.URLs[url]
		rows = append(rows, []string{
			"`" + truncateString(url, 60) + "`",
			string(v.Category),
			fmt.Sprintf("%.2f", v.Confidence),
			string(v.Source),
			formatProvenance(v.Sources),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Category", "Confidence", "Source", "Found On"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePages writes the per-page outcome table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("Pages")
	md.PlainText("")

	rows := make([][]string, 0, len(result.Pages))
	for _, page := range result.Pages {
		detail := page.ErrorDetail
		if detail == "" && len(page.CodeErrors) > 0 {
			detail = fmt.Sprintf("%d unreadable code region(s)", len(page.CodeErrors))
		}
		if detail == "" {
			detail = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(page.Index + 1),
			string(page.Status),
			strconv.Itoa(page.CodeCount),
			truncateString(detail, 60),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Page", "Status", "QR Codes", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [qrscan](https://github.com/docvet/qrscan)*")
}

// sortedURLs orders URLs by descending severity, then alphabetically so
// report output is deterministic.
func sortedURLs(result *model.ScanResult) []string {
	urls := make([]string, 0, len(result.URLs))
	for url := range result.URLs {
		urls = append(urls, url)
	}
	sort.Slice(urls, func(i, j int) bool {
		ci := result.URLs[urls[i]].Category
		cj := result.URLs[urls[j]].Category
		if ci != cj {
			return ci.MoreSevereThan(cj)
		}
		return urls[i] < urls[j]
	})
	return urls
}

// formatProvenance renders source locations as "p2 c1, p5 c1" with
// 1-based page numbers.
func formatProvenance(sources []model.Provenance) string {
	if len(sources) == 0 {
		return "-"
	}
	s := ""
	for i, src := range sources {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("p%d c%d", src.PageIndex+1, src.CodeIndex+1)
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
