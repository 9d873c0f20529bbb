package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/url"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
)

const (
	labelPadding    = 20
	labelBorderSize = 1
	labelFontSize   = 14
)

// AddLabel draws the origin of rawURL on a white strip across the bottom of
// the encoded image. The result has the same dimensions and encoding (png or
// jpeg) as the input.
func AddLabel(data []byte, rawURL string, quality int) ([]byte, error) {
	origin, err := Origin(rawURL)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	strip := float64(labelPadding*2 + labelBorderSize)
	if float64(h) <= strip {
		return data, nil
	}

	face, err := labelFace()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	yLine := float64(h) - strip
	dc.SetColor(color.White)
	dc.DrawRectangle(0, yLine, float64(w), strip)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetLineWidth(labelBorderSize)
	dc.DrawLine(0, yLine, float64(w), yLine)
	dc.Stroke()
	dc.SetFontFace(face)
	dc.DrawStringAnchored(origin, float64(w)/2, yLine+labelPadding, 0.5, 0.3)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(&buf, dc.Image())
	default:
		return nil, fmt.Errorf("cannot label %s images", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Origin returns scheme://host of rawURL with default ports dropped.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("failed to parse URL: %q has no scheme or host", rawURL)
	}

	host := u.Host
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		host = u.Hostname()
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	return u.Scheme + "://" + host, nil
}

var (
	fontOnce sync.Once
	ttf      *truetype.Font
	fontErr  error
)

// labelFace returns a new face per call; faces cache glyphs and are not safe
// for concurrent use.
func labelFace() (font.Face, error) {
	fontOnce.Do(func() {
		ttf, fontErr = truetype.Parse(gomedium.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("failed to parse font: %w", fontErr)
		}
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return truetype.NewFace(ttf, &truetype.Options{Size: labelFontSize}), nil
}
