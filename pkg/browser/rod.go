package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser

	mu     sync.Mutex
	closed bool
}

func newRodBrowser(opts LaunchOptions) (*rodBrowser, error) {
	l := rodLauncher(opts)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launching chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser: connecting to chrome: %w", err)
	}

	return &rodBrowser{launcher: l, browser: b}, nil
}

// rodLauncher builds the launcher with the same switches as the chromedp
// allocator.
func rodLauncher(opts LaunchOptions) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)

	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	} else if path, has := launcher.LookPath(); has {
		l = l.Bin(path)
	}

	if opts.UserAgent != "" {
		l.Set("user-agent", opts.UserAgent)
	}
	if opts.IgnoreCertificateErrors {
		l.Set("ignore-certificate-errors", "true")
	}
	if opts.DisableHTTP2 {
		l.Set("disable-http2", "true")
	}
	l.Set("hide-scrollbars")
	return l
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("browser: opening tab: %w", err)
	}
	// drop the creation context; each call supplies its own
	return &rodPage{page: p.Context(context.Background())}, nil
}

func (b *rodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page

	width, height int
	clip          Rect
}

func (p *rodPage) SetViewport(width, height int) {
	p.width, p.height = width, height
}

func (p *rodPage) SetClip(r Rect) {
	p.clip = r
}

func (p *rodPage) Open(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)

	if p.width > 0 && p.height > 0 {
		err := pg.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             p.width,
			Height:            p.height,
			DeviceScaleFactor: 1,
			Mobile:            false,
		})
		if err != nil {
			return fmt.Errorf("setting viewport: %w", err)
		}
	}

	if err := pg.Navigate(url); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) Render(ctx context.Context, f Format, quality int) ([]byte, error) {
	pg := p.page.Context(ctx)

	switch f {
	case FormatPDF:
		r, err := pg.PDF(&proto.PagePrintToPDF{
			PrintBackground: true,
			PaperWidth:      gson.Num(pxToInches(p.clip.Width)),
			PaperHeight:     gson.Num(pxToInches(p.clip.Height)),
			MarginTop:       gson.Num(0),
			MarginBottom:    gson.Num(0),
			MarginLeft:      gson.Num(0),
			MarginRight:     gson.Num(0),
			PageRanges:      "1",
		})
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)

	case FormatPNG, FormatJPEG, FormatWebP:
		req := &proto.PageCaptureScreenshot{
			Format:      proto.PageCaptureScreenshotFormatPng,
			FromSurface: true,
		}
		if p.clip.Width > 0 && p.clip.Height > 0 {
			req.Clip = &proto.PageViewport{
				X:      float64(p.clip.Left),
				Y:      float64(p.clip.Top),
				Width:  float64(p.clip.Width),
				Height: float64(p.clip.Height),
				Scale:  1,
			}
		}
		switch f {
		case FormatJPEG:
			req.Format = proto.PageCaptureScreenshotFormatJpeg
			req.Quality = gson.Int(quality)
		case FormatWebP:
			req.Format = proto.PageCaptureScreenshotFormatWebp
			req.Quality = gson.Int(quality)
		}
		return pg.Screenshot(false, req)

	case FormatGIF, FormatBMP:
		pngData, err := p.Render(ctx, FormatPNG, 0)
		if err != nil {
			return nil, err
		}
		return transcode(pngData, f)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
