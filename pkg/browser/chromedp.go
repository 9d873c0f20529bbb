package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

type chromedpBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func newChromedpBrowser(opts LaunchOptions) (*chromedpBrowser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], opts.chromedpFlags()...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// start eagerly so launch errors surface here rather than on first capture
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser: starting chrome: %w", err)
	}

	return &chromedpBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (b *chromedpBrowser) NewPage(ctx context.Context) (Page, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		tabCancel()
		return nil, err
	}

	// The first Run creates the target and ties its event loop to the context
	// it is given, so it must be the tab context itself and not a child. ctx
	// can only abort it by cancelling the whole tab.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	if !stop() || err != nil {
		tabCancel()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("browser: opening tab: %w", ctxErr)
		}
		return nil, fmt.Errorf("browser: opening tab: %w", err)
	}
	return &chromedpPage{tabCtx: tabCtx, cancel: tabCancel}, nil
}

func (b *chromedpBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.browserCancel()
	b.allocCancel()
	return nil
}

type chromedpPage struct {
	tabCtx context.Context
	cancel context.CancelFunc

	width, height int
	clip          Rect
}

func (p *chromedpPage) SetViewport(width, height int) {
	p.width, p.height = width, height
}

func (p *chromedpPage) SetClip(r Rect) {
	p.clip = r
}

func (p *chromedpPage) Open(ctx context.Context, url string) error {
	var actions []chromedp.Action
	if p.width > 0 && p.height > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(p.width), int64(p.height)))
	}
	actions = append(actions, chromedp.Navigate(url))
	return p.run(ctx, actions...)
}

func (p *chromedpPage) Render(ctx context.Context, f Format, quality int) ([]byte, error) {
	var buf []byte

	switch f {
	case FormatPDF:
		err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(pxToInches(p.clip.Width)).
				WithPaperHeight(pxToInches(p.clip.Height)).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPageRanges("1").
				Do(ctx)
			return err
		}))
		return buf, err

	case FormatPNG, FormatJPEG, FormatWebP:
		err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = p.screenshot(f, quality).Do(ctx)
			return err
		}))
		return buf, err

	case FormatGIF, FormatBMP:
		pngData, err := p.Render(ctx, FormatPNG, 0)
		if err != nil {
			return nil, err
		}
		return transcode(pngData, f)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func (p *chromedpPage) screenshot(f Format, quality int) *page.CaptureScreenshotParams {
	params := page.CaptureScreenshot().WithFromSurface(true)
	if p.clip.Width > 0 && p.clip.Height > 0 {
		params = params.WithClip(&page.Viewport{
			X:      float64(p.clip.Left),
			Y:      float64(p.clip.Top),
			Width:  float64(p.clip.Width),
			Height: float64(p.clip.Height),
			Scale:  1,
		})
	}

	switch f {
	case FormatJPEG:
		params = params.WithFormat(page.CaptureScreenshotFormatJpeg).WithQuality(int64(quality))
	case FormatWebP:
		params = params.WithFormat(page.CaptureScreenshotFormatWebp).WithQuality(int64(quality))
	default:
		params = params.WithFormat(page.CaptureScreenshotFormatPng)
	}
	return params
}

func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}

// run executes actions in the tab while honouring ctx cancellation. Actions
// must run on the tab context, so ctx is bridged onto a child of it.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ctxErr, err)
		}
		return err
	}
	return nil
}
