package rasterize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeMinimalPDF builds a valid single-page PDF from scratch, tracking
// byte offsets so the cross-reference table is exact.
func writeMinimalPDF(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	offsets := make([]int, 0, 4)

	b.WriteString("%PDF-1.4\n")

	writeObj := func(body string) {
		offsets = append(offsets, b.Len())
		b.WriteString(body)
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	writeObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] >>\nendobj\n")

	xrefOffset := b.Len()
	b.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	path := filepath.Join(t.TempDir(), "blank.pdf")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMuPDF_Open(t *testing.T) {
	t.Parallel()

	t.Run("valid single page document", func(t *testing.T) {
		t.Parallel()

		doc, err := NewMuPDF().Open(writeMinimalPDF(t))
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() {
			if err := doc.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		}()

		if got := doc.PageCount(); got != 1 {
			t.Errorf("PageCount() = %d, want 1", got)
		}

		img, err := doc.Image(0)
		if err != nil {
			t.Fatalf("Image(0) error = %v", err)
		}
		bounds := img.Bounds()
		if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
			t.Errorf("Image(0) bounds = %v, want a non-empty image", bounds)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := NewMuPDF().Open(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
			t.Error("Open() error = nil, want error for missing file")
		}
	})

	t.Run("not a pdf", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "notes.pdf")
		if err := os.WriteFile(path, []byte("plain text, no document structure"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := NewMuPDF().Open(path); err == nil {
			t.Error("Open() error = nil, want error for a non-PDF file")
		}
	})
}

func TestMuPDF_ImageOutOfRange(t *testing.T) {
	t.Parallel()

	doc, err := NewMuPDF().Open(writeMinimalPDF(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer doc.Close()

	if _, err := doc.Image(5); err == nil {
		t.Error("Image(5) error = nil, want error for out-of-range page")
	}
}
