// Package imaging normalises uploaded item photos: the format is sniffed
// from the bytes, oversized images are scaled down and everything is
// stored as JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults for a zero Processor.
const (
	DefaultMaxDimension = 1024
	DefaultQuality      = 85

	// maxPixels bounds the decoded size of an upload.
	maxPixels = 40_000_000
)

// ErrUnsupported is returned for uploads that are not an accepted image.
var ErrUnsupported = errors.New("unsupported image format")

// Accepted lists the sniffed content types that may be uploaded.
var Accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is a processed upload.
type Image struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Processor converts uploads. MaxDimension caps the longer side.
type Processor struct {
	MaxDimension int
	Quality      int
}

// Process reads an upload and returns it as a JPEG no larger than
// MaxDimension on either side. Client-supplied content types are ignored.
func (p Processor) Process(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	mime := http.DetectContentType(data)
	if !Accepted[mime] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d is too large", ErrUnsupported, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	maxDim := p.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	quality := p.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	img = fit(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}

	b := img.Bounds()
	return &Image{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down, keeping its aspect ratio, until both sides are at
// most maxDim. Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	longest := max(w, h)
	nw := max(1, w*maxDim/longest)
	nh := max(1, h*maxDim/longest)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}
