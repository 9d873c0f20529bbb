package browser

import (
	"bytes"
	"fmt"
	"image/gif"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a file extension, with or without the leading dot, to a
// Format.
func ParseFormat(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// FormatFromPath infers the format from the extension of path. Paths with
// no extension or an unknown one render as PNG.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatPNG
	}
	return f
}

// Extension returns the canonical file extension including the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/" + string(f)
}

// IsRaster reports whether f is a pixel image format.
func (f Format) IsRaster() bool {
	return f != FormatPDF
}

// transcode converts a PNG capture to a format Chrome cannot produce itself.
func transcode(pngData []byte, f Format) ([]byte, error) {
	if f == FormatPNG {
		return pngData, nil
	}

	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decoding capture: %w", err)
	}

	var buf bytes.Buffer
	switch f {
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("%w: cannot transcode to %s", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

// pxToInches converts CSS pixels to inches at 96 DPI.
func pxToInches(px int) float64 {
	return float64(px) / 96
}
