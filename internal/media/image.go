// Package media normalises uploaded pictures before they are stored.
package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"social/internal/models"
)

// MaxUploadBytes bounds how much of an uploaded file is read.
const MaxUploadBytes = 10 << 20

var formats = []string{"jpeg", "png", "gif", "webp"}

// Processor fits images inside MaxWidth x MaxHeight, keeping the aspect ratio,
// and re-encodes them as JPEG. Smaller images keep their size.
// Images whose header declares more than MaxPixels are rejected before any
// pixel data is decoded.
type Processor struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	MaxPixels int
}

func NewProcessor() *Processor {
	return &Processor{MaxWidth: 800, MaxHeight: 800, Quality: 80, MaxPixels: 50_000_000}
}

// Normalize decodes r, resizes and returns JPEG bytes. Input that is not a
// supported image, or is too large once decoded, fails with a validation error.
func (p *Processor) Normalize(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || !slices.Contains(formats, format) {
		return nil, models.Validation("Unsupported or corrupt image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > p.MaxPixels/cfg.Height {
		return nil, models.Validation("Image dimensions are too large")
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, models.Validation("Unsupported or corrupt image")
	}

	b := src.Bounds()
	w, h := fitInside(b.Dx(), b.Dy(), p.MaxWidth, p.MaxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; paint transparent areas white.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, errors.Wrap(err, "encoding jpeg")
	}
	return buf.Bytes(), nil
}

func fitInside(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// scale by the tighter of the two ratios
	if w*maxH > h*maxW {
		nh := h * maxW / w
		if nh < 1 {
			nh = 1
		}
		return maxW, nh
	}
	nw := w * maxH / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxH
}
