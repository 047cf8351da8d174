// Package imaging re-encodes uploaded product photos down to a web-friendly
// size before they hit the blob store (target ~0.5 MB, max 1920px), replacing
// the client-side compression the admin page used to do in the browser.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

type Options struct {
	// MaxSizeBytes is the target encoded size. 0 means DefaultMaxSizeBytes.
	MaxSizeBytes int
	// MaxDimension bounds width and height. 0 means DefaultMaxDimension.
	// Images are never upscaled.
	MaxDimension int
	// OnProgress receives a monotonic 0..100 percentage.
	OnProgress func(percent int)
}

const (
	DefaultMaxSizeBytes = 512 * 1024
	DefaultMaxDimension = 1920

	startQuality = 85
	minQuality   = 30
	qualityStep  = 10
)

// Compress decodes data (jpeg/png/gif), scales it down to MaxDimension and
// re-encodes it as JPEG, lowering quality until the result fits MaxSizeBytes
// or the quality floor is reached. The last attempt is returned even when it
// still exceeds the target, so a caller always gets a usable image back.
func Compress(data []byte, opts Options) ([]byte, error) {
	maxSize := opts.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeBytes
	}
	maxDim := opts.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	progress := opts.OnProgress
	if progress == nil {
		progress = func(int) {}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	progress(10)

	img := scaleDown(src, maxDim)
	progress(30)

	// Quality ladder: 85, 75, ... down to 30.
	steps := (startQuality-minQuality)/qualityStep + 1
	var out []byte
	for i := 0; i < steps; i++ {
		q := startQuality - i*qualityStep
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		out = buf.Bytes()

		pct := 30 + (i+1)*70/steps
		if len(out) <= maxSize {
			progress(100)
			return out, nil
		}
		progress(pct)
	}

	progress(100)
	return out, nil
}

func scaleDown(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
