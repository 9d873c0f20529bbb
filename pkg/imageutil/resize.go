// Package imageutil post-processes captured screenshots.
package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Resize scales img to width x height with bilinear interpolation. A zero
// dimension is derived from the other one to keep the aspect ratio; if both
// are zero img is returned unchanged.
func Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 && height <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	if width <= 0 {
		width = max(1, b.Dx()*height/b.Dy())
	}
	if height <= 0 {
		height = max(1, b.Dy()*width/b.Dx())
	}
	if width == b.Dx() && height == b.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ResizeJPEG decodes a JPEG, resizes it and encodes it again.
func ResizeJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("jpeg decoding failed: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Resize(img, width, height), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}
