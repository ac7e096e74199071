// Package qr detects and decodes QR codes in page images. The pipeline
// depends on the Decoder interface; the concrete implementation wraps the
// ZXing port's multi-code QR reader.
package qr
