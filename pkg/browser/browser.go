// Package browser drives a headless Chrome through one of two DevTools
// clients, chromedp or rod, behind a small page-oriented interface.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Engine names a DevTools client backend.
type Engine string

const (
	EngineChromedp Engine = "chromedp"
	EngineRod      Engine = "rod"
)

var (
	// ErrClosed is returned when using a closed Browser.
	ErrClosed = errors.New("browser: closed")
	// ErrUnsupportedFormat is returned by Render for unknown formats.
	ErrUnsupportedFormat = errors.New("browser: unsupported format")
)

// Rect is a region in page pixel coordinates.
type Rect struct {
	Top    int
	Left   int
	Width  int
	Height int
}

// Browser creates pages. Implementations are safe for concurrent use.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab. A Page is owned by one caller at a time.
type Page interface {
	// SetViewport sets the window size used for layout on the next Open.
	SetViewport(width, height int)
	// SetClip sets the region captured by Render.
	SetClip(r Rect)
	// Open navigates to url and blocks until the load event fires or the
	// navigation fails.
	Open(ctx context.Context, url string) error
	// Render encodes the clipped page. quality applies to jpeg and webp.
	Render(ctx context.Context, f Format, quality int) ([]byte, error)
	Close() error
}

// LaunchOptions configures the browser process.
type LaunchOptions struct {
	Engine                  Engine
	ChromePath              string
	Headless                bool
	NoSandbox               bool
	IgnoreCertificateErrors bool
	DisableHTTP2            bool
	UserAgent               string
}

// DefaultLaunchOptions returns headless chromedp options.
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Engine:   EngineChromedp,
		Headless: true,
	}
}

// New starts a browser using the engine named in opts.
func New(opts LaunchOptions) (Browser, error) {
	switch opts.Engine {
	case EngineChromedp, "":
		return newChromedpBrowser(opts)
	case EngineRod:
		return newRodBrowser(opts)
	default:
		return nil, fmt.Errorf("browser: unknown engine %q", opts.Engine)
	}
}

// chromedpFlags returns allocator options on top of the chromedp defaults.
func (o LaunchOptions) chromedpFlags() []chromedp.ExecAllocatorOption {
	var flags []chromedp.ExecAllocatorOption

	if !o.Headless {
		flags = append(flags, chromedp.Flag("headless", false))
	}
	if o.IgnoreCertificateErrors {
		flags = append(flags, chromedp.Flag("ignore-certificate-errors", true))
	}
	if o.DisableHTTP2 {
		flags = append(flags, chromedp.Flag("disable-http2", true))
	}
	if o.NoSandbox {
		flags = append(flags, chromedp.Flag("no-sandbox", true))
	}
	if o.ChromePath != "" {
		flags = append(flags, chromedp.ExecPath(o.ChromePath))
	}
	if o.UserAgent != "" {
		flags = append(flags, chromedp.UserAgent(o.UserAgent))
	}

	// software rendering keeps minimal containers working
	flags = append(flags,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	return flags
}
