package rasterize

import (
	"fmt"
	"image"
	"io"

	"github.com/gen2brain/go-fitz"
)

// Document is an open PDF producing page images on demand.
//
// Page images are borrowed read-only by the decoder and discarded after
// decoding; the document handle owns all underlying resources and must be
// closed by whoever opened it.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Image rasterizes the page at the given 0-based index.
	// A failure affects only that page, not the document.
	Image(index int) (image.Image, error)

	io.Closer
}

// Rasterizer opens PDF documents for rasterization.
//
// Design decision: Open takes a path rather than a reader because MuPDF
// memory-maps the file. An unreadable document is the only whole-scan
// fatal condition, and it surfaces here.
type Rasterizer interface {
	Open(path string) (Document, error)
}

// MuPDF is the production Rasterizer backed by the MuPDF engine, the same
// renderer used by PyMuPDF. The zero value is ready to use.
type MuPDF struct{}

// NewMuPDF returns a MuPDF rasterizer.
func NewMuPDF() *MuPDF {
	return &MuPDF{}
}

// Open opens the PDF at path.
func (m *MuPDF) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	return &muPDFDocument{doc: doc}, nil
}

// muPDFDocument adapts *fitz.Document to the Document interface.
type muPDFDocument struct {
	doc *fitz.Document
}

// PageCount returns the number of pages.
func (d *muPDFDocument) PageCount() int {
	return d.doc.NumPage()
}

// Image rasterizes one page.
func (d *muPDFDocument) Image(index int) (image.Image, error) {
	img, err := d.doc.Image(index)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %w", index, err)
	}
	return img, nil
}

// Close releases the underlying MuPDF resources.
func (d *muPDFDocument) Close() error {
	return d.doc.Close()
}
