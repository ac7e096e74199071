// Package rasterize converts PDF documents into per-page raster images.
// The pipeline depends on the small Rasterizer/Document interfaces; the
// concrete implementation wraps the MuPDF engine via go-fitz.
package rasterize
