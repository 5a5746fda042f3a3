package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Options controls optimization.
type Options struct {
	// Quality is the JPEG encode quality (1-100).
	Quality int
	// MaxWidth and MaxHeight bound the output dimensions; larger images are
	// downscaled preserving aspect ratio.
	MaxWidth  int
	MaxHeight int
}

// Result is the optimized payload plus how it should be uploaded.
type Result struct {
	Data            []byte
	ContentType     string
	ContentEncoding string
	// Optimized is false when the original bytes pass through untouched
	// (already small enough, unsupported for re-encode, or re-encode grew).
	Optimized bool
}

// Optimize transforms raw image bytes according to opts. The filename is only
// used for its extension.
//
// Strategy, per format:
//   - JPEG/PNG: decode, downscale if beyond max dimensions (CatmullRom), and
//     re-encode at the target quality. If the result is no smaller and no
//     resize happened, the original bytes win.
//   - SVG: gzip the payload and mark Content-Encoding (text compresses well;
//     there is nothing raster to recompress).
//   - GIF/WebP/BMP/TIFF: pass through unchanged. Animated GIFs would be
//     flattened by a re-encode, and Go has no WebP encoder worth shipping.
//
// A decode or encode failure returns an error; callers fall back to the
// original bytes rather than failing the upload.
func Optimize(data []byte, filename string, opts Options) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := ContentType(filename)

	switch ext {
	case ".jpg", ".jpeg", ".png":
		return optimizeRaster(data, ext, contentType, opts)
	case ".svg":
		return compressSVG(data)
	default:
		return &Result{Data: data, ContentType: contentType}, nil
	}
}

func optimizeRaster(data []byte, ext, contentType string, opts Options) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	newWidth, newHeight := fitDimensions(origWidth, origHeight, opts.MaxWidth, opts.MaxHeight)
	resized := newWidth != origWidth || newHeight != origHeight

	out := img
	if resized {
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	switch ext {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: opts.Quality})
	case ".png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, out)
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	// Re-encoding an already-optimized file can grow it. Without a resize
	// there is no reason to accept that.
	if !resized && buf.Len() >= len(data) {
		return &Result{Data: data, ContentType: contentType}, nil
	}

	log.Debug().
		Str("format", ext).
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("orig_size", len(data)).
		Int("new_size", buf.Len()).
		Msg("Image optimized")

	return &Result{Data: buf.Bytes(), ContentType: contentType, Optimized: true}, nil
}

// compressSVG gzips an SVG payload and marks it for Content-Encoding: gzip.
// If compression does not shrink it, the original passes through.
func compressSVG(data []byte) (*Result, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip svg: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip svg: %w", err)
	}

	if buf.Len() >= len(data) {
		return &Result{Data: data, ContentType: "image/svg+xml"}, nil
	}

	return &Result{
		Data:            buf.Bytes(),
		ContentType:     "image/svg+xml",
		ContentEncoding: "gzip",
		Optimized:       true,
	}, nil
}

// fitDimensions shrinks (width, height) to fit within (maxWidth, maxHeight)
// preserving aspect ratio. Images already within bounds keep their size.
func fitDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratioW := float64(maxWidth) / float64(width)
	ratioH := float64(maxHeight) / float64(height)
	ratio := ratioW
	if ratioH < ratio {
		ratio = ratioH
	}

	newWidth := int(float64(width) * ratio)
	newHeight := int(float64(height) * ratio)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}
	return newWidth, newHeight
}
