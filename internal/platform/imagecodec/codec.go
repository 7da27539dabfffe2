// Package imagecodec decodes uploaded image bytes into pixel grids and encodes
// pipeline output back to bytes for storage.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Format is an output encoding.
type Format int

const (
	// JPEG is the lossy storage format used for crops and annotated scenes.
	JPEG Format = iota
	// PNG is lossless and used when handing preprocessed crops to OCR engines.
	PNG
)

// JPEGQuality is the quality used for every JPEG written by the service.
const JPEGQuality = 80

// MaxPixels caps width*height of a decoded image. A few kilobytes of PNG can
// declare dimensions that would need gigabytes once decoded.
const MaxPixels = 1 << 26

var (
	// ErrEmpty is returned when Decode receives no bytes.
	ErrEmpty = errors.New("image data is empty")
	// ErrTooLarge is returned when the declared dimensions exceed MaxPixels.
	ErrTooLarge = errors.New("image dimensions too large")
)

// Decode decodes any registered image format into an NRGBA grid whose bounds start at (0,0).
// EXIF orientation is applied so that phone and Telegram uploads are upright.
// Images whose header declares more than MaxPixels are rejected before any pixel is allocated.
// Decode never panics on malformed input.
func Decode(data []byte) (img *image.NRGBA, err error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	defer func() {
		// some third-party decoders panic on truncated streams
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("decode image: %v", r)
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	decoded, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imaging.Clone(decoded), nil
}

// Encode writes img in the requested format. Identical input yields identical output.
func Encode(img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	case PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		return nil, fmt.Errorf("unsupported format %d", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type for format.
func ContentType(format Format) string {
	if format == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Sniff reports the file extension and MIME type of encoded image data from its header.
// Data that no registered decoder recognises is reported as JPEG, the format cameras upload.
func Sniff(data []byte) (ext, contentType string) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ".jpg", "image/jpeg"
	}
	switch name {
	case "png":
		return ".png", "image/png"
	case "gif":
		return ".gif", "image/gif"
	case "webp":
		return ".webp", "image/webp"
	case "bmp":
		return ".bmp", "image/bmp"
	case "tiff":
		return ".tiff", "image/tiff"
	}
	return ".jpg", "image/jpeg"
}
