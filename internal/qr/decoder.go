package qr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/makiuchi-d/gozxing"
	qrmulti "github.com/makiuchi-d/gozxing/multi/qrcode"

	"github.com/docvet/qrscan/internal/model"
)

// Detection is one decoded QR code within a single page image. The page
// index is assigned by the caller, which knows which page the image
// belongs to.
type Detection struct {
	// Bounds is the code's bounding region in image pixel coordinates.
	Bounds model.BoundingBox

	// Payload is the raw decoded string.
	Payload string
}

// Decoder extracts QR codes from one page image.
//
// A page without any QR code returns an empty slice and nil error.
// A detected-but-undecodable code returns an error for which IsCorrupted
// reports true; the caller records it against the code region without
// failing the page.
type Decoder interface {
	Decode(ctx context.Context, img image.Image) ([]Detection, error)
}

// ZXing is the production Decoder backed by the Go port of the ZXing
// barcode library. It reads multiple QR codes per image.
type ZXing struct {
	reader *qrmulti.QRCodeMultiReader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewZXing creates a ZXing decoder. TryHarder trades decode time for
// better detection on low-contrast rasterized pages.
func NewZXing() *ZXing {
	return &ZXing{
		reader: qrmulti.NewQRCodeMultiReader().(*qrmulti.QRCodeMultiReader),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode finds and decodes every QR code in the image.
func (z *ZXing) Decode(ctx context.Context, img image.Image) ([]Detection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to binarize page image: %w", err)
	}

	results, err := z.reader.DecodeMultiple(bmp, z.hints)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("qr decode failed: %w", err)
	}

	detections := make([]Detection, 0, len(results))
	for _, result := range results {
		detections = append(detections, Detection{
			Bounds:  boundsFromPoints(result.GetResultPoints()),
			Payload: result.GetText(),
		})
	}

	return detections, nil
}

// boundsFromPoints computes the axis-aligned bounding box of the finder
// pattern points ZXing reports for a decoded code.
func boundsFromPoints(points []gozxing.ResultPoint) model.BoundingBox {
	if len(points) == 0 {
		return model.BoundingBox{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}

	return model.BoundingBox{
		X:      int(minX),
		Y:      int(minY),
		Width:  int(maxX - minX),
		Height: int(maxY - minY),
	}
}

// IsNotFound reports whether err means no QR code is present in the image.
func IsNotFound(err error) bool {
	var notFound gozxing.NotFoundException
	return errors.As(err, &notFound)
}

// IsCorrupted reports whether err means a code region was detected but
// could not be decoded, e.g. damaged or partially obscured modules.
// Such errors are isolated to the code region, not the page.
func IsCorrupted(err error) bool {
	var format gozxing.FormatException
	if errors.As(err, &format) {
		return true
	}
	var checksum gozxing.ChecksumException
	return errors.As(err, &checksum)
}
