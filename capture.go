package fotogopher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/root4loot/fotogopher/internal/logging"
	"github.com/root4loot/fotogopher/pkg/browser"
	"github.com/root4loot/fotogopher/pkg/imageutil"
)

// Capture geometry. Every capture lays the page out in a 1280x1024 window
// and keeps exactly that region.
const (
	ViewportWidth  = 1280
	ViewportHeight = 1024
)

// Clip is the region of the page written to the output.
var Clip = browser.Rect{Top: 0, Left: 0, Width: ViewportWidth, Height: ViewportHeight}

// Request describes one capture. An empty OutputPath sends a base64 JPEG to
// the writer passed to Capture instead of writing a file.
type Request struct {
	TargetURL  string
	OutputPath string
}

// Capturer loads pages in a browser and renders them.
type Capturer struct {
	browser browser.Browser
	options *Options
}

// NewCapturer returns a Capturer using b. A nil opts uses DefaultOptions.
func NewCapturer(b browser.Browser, opts *Options) *Capturer {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Capturer{browser: b, options: opts}
}

// Capture loads req.TargetURL and either writes the rendered page to
// req.OutputPath, in the format named by its extension, or writes one line
// of base64 encoded JPEG to stdout. Nothing is written to stdout unless the
// capture succeeds.
func (c *Capturer) Capture(ctx context.Context, req Request, stdout io.Writer) error {
	if req.TargetURL == "" {
		return ErrMissingURL
	}

	if req.OutputPath != "" {
		format := browser.FormatFromPath(req.OutputPath)
		data, err := c.render(ctx, req.TargetURL, format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(req.OutputPath, data, 0o644); err != nil {
			logging.Error("could not write capture", "path", req.OutputPath, "error", err)
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		logging.Debug("capture written", "url", req.TargetURL, "path", req.OutputPath, "format", string(format), "bytes", len(data))
		return nil
	}

	data, err := c.render(ctx, req.TargetURL, browser.FormatJPEG)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(stdout, base64.StdEncoding.EncodeToString(data)+"\n"); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	logging.Debug("capture written to stdout", "url", req.TargetURL, "bytes", len(data))
	return nil
}

// Snapshot loads url and returns the page as JPEG bytes.
func (c *Capturer) Snapshot(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	return c.render(ctx, url, browser.FormatJPEG)
}

func (c *Capturer) render(ctx context.Context, url string, format browser.Format) ([]byte, error) {
	if c.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.Timeout)
		defer cancel()
	}

	page, err := c.browser.NewPage(ctx)
	if err != nil {
		logging.Error("could not open a browser tab", "error", err)
		return nil, fmt.Errorf("acquiring page: %w", err)
	}
	defer page.Close()

	page.SetViewport(ViewportWidth, ViewportHeight)
	page.SetClip(Clip)

	logging.Debug("navigating", "url", url, "width", ViewportWidth, "height", ViewportHeight)
	if err := page.Open(ctx, url); err != nil {
		logging.Warn("navigation failed", "url", url, "error", err)
		return nil, &NavigationError{URL: url, Err: err}
	}

	data, err := page.Render(ctx, format, c.options.JPEGQuality)
	if err == nil && len(data) == 0 {
		err = errors.New("engine returned no data")
	}
	if err != nil {
		logging.Error("rendering failed", "url", url, "format", string(format), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	if c.options.Label && (format == browser.FormatPNG || format == browser.FormatJPEG) {
		labeled, err := imageutil.AddLabel(data, url, c.options.JPEGQuality)
		if err != nil {
			logging.Warn("could not label capture", "url", url, "error", err)
		} else {
			data = labeled
		}
	}
	return data, nil
}
