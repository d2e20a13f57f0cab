// Package images prepares uploaded scans for OCR: decode whatever the
// client sent, cap the dimensions, and re-encode as JPEG.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
	"pault.ag/go/cbeff/jpeg2000"
)

const (
	// Vision charges and latency both grow with pixel count; a passport
	// page stays legible well below this cap.
	maxOcrWidth  = 2000
	maxOcrHeight = 2000

	ocrJpegQuality = 85
)

// PrepareForOCR downscales an uploaded scan to fit within 2000x2000 and
// re-encodes it as JPEG quality 85. Purely a performance optimization:
// on any decode or encode failure the original bytes are returned
// unchanged.
func PrepareForOCR(data []byte) []byte {
	img, err := DecodeImage(data)
	if err != nil {
		slog.Debug("Keeping original upload bytes", "reason", err)
		return data
	}

	resized := resizeToFit(img, maxOcrWidth, maxOcrHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: ocrJpegQuality}); err != nil {
		slog.Warn("Failed to re-encode upload, keeping original bytes", "error", err)
		return data
	}

	slog.Debug("Upload prepared for OCR", "original_bytes", len(data), "prepared_bytes", buf.Len())
	return buf.Bytes()
}

// DecodeImage attempts to decode an image from bytes, trying multiple formats.
func DecodeImage(data []byte) (image.Image, error) {
	// JPEG first (most common for phone scans)
	if img, err := jpeg.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// JPEG 2000 (JP2/J2K), common for flatbed passport scanners
	if img, err := jpeg2000.Parse(data); err == nil {
		return img, nil
	}

	// Generic decode as fallback (PNG via the registered decoder)
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("unsupported or invalid image format")
}

// resizeToFit scales img to fit within maxW×maxH (keeping aspect ratio)
func resizeToFit(src image.Image, maxW, maxH int) image.Image {
	bw := src.Bounds().Dx()
	bh := src.Bounds().Dy()

	scale := math.Min(float64(maxW)/float64(bw), float64(maxH)/float64(bh))
	if scale >= 1.0 {
		return src // already small enough
	}
	w := int(math.Max(1, math.Round(float64(bw)*scale)))
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// CatmullRom = high quality, good for document photos
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
