package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tallPage = `<!doctype html>
<html>
  <body style="margin:0">
    <div style="height:3000px;width:1800px;background:linear-gradient(#c00,#00c)">tall page</div>
  </body>
</html>`

// launchLocal starts engine against a locally installed Chrome, skipping the
// test when there is none.
func launchLocal(t *testing.T, engine Engine) Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	path, has := launcher.LookPath()
	if !has {
		t.Skip("no Chrome or Chromium found")
	}

	b, err := New(LaunchOptions{
		Engine:     engine,
		ChromePath: path,
		Headless:   true,
		NoSandbox:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func closedPortURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return fmt.Sprintf("http://%s/", addr)
}

func TestEnginesRenderClippedViewport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, tallPage)
	}))
	defer srv.Close()

	for _, engine := range []Engine{EngineChromedp, EngineRod} {
		t.Run(string(engine), func(t *testing.T) {
			b := launchLocal(t, engine)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			p, err := b.NewPage(ctx)
			require.NoError(t, err)
			defer p.Close()

			p.SetViewport(1280, 1024)
			p.SetClip(Rect{Top: 0, Left: 0, Width: 1280, Height: 1024})
			require.NoError(t, p.Open(ctx, srv.URL))

			data, err := p.Render(ctx, FormatJPEG, 80)
			require.NoError(t, err)
			require.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}))
			img, err := jpeg.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 1280, 1024), img.Bounds())

			data, err = p.Render(ctx, FormatPNG, 0)
			require.NoError(t, err)
			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, 1280, cfg.Width)
			assert.Equal(t, 1024, cfg.Height)
		})
	}
}

func TestEnginesReportNavigationFailure(t *testing.T) {
	target := closedPortURL(t)

	for _, engine := range []Engine{EngineChromedp, EngineRod} {
		t.Run(string(engine), func(t *testing.T) {
			b := launchLocal(t, engine)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			p, err := b.NewPage(ctx)
			require.NoError(t, err)
			defer p.Close()

			p.SetViewport(1280, 1024)
			assert.Error(t, p.Open(ctx, target))
		})
	}
}

func TestEnginesHonourContextOnNewPage(t *testing.T) {
	for _, engine := range []Engine{EngineChromedp, EngineRod} {
		t.Run(string(engine), func(t *testing.T) {
			b := launchLocal(t, engine)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := b.NewPage(ctx)
			assert.Error(t, err)

			require.NoError(t, b.Close())
			_, err = b.NewPage(context.Background())
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}
