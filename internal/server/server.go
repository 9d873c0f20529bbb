// Package server exposes snapshots over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"github.com/root4loot/fotogopher"
	"github.com/root4loot/fotogopher/internal/cache"
	"github.com/root4loot/fotogopher/internal/logging"
)

// Snapshotter takes scaled snapshots; *fotogopher.Pool implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context, url string, width, height int) ([]byte, error)
}

// DefaultMaxDimension bounds width and height when Deps.MaxDimension is 0.
const DefaultMaxDimension = 4096

// Deps are the collaborators of the HTTP app.
type Deps struct {
	Snapshotter  Snapshotter
	Cache        *cache.Cache // optional
	MaxDimension int
}

const helpPage = `<!doctype html>
<html>
  <head><title>Snapshot</title></head>
  <body>
    <h1>Snapshot</h1>
    This is a web service that takes snapshots of web sites. API only. Endpoints are like:
<pre>
<a href="/snapshot?width=640&height=480&url=http://example.com">/snapshot?width=640&height=480&url=http://example.com</a>
</pre>

If width or height is 0 then it will be set to an aspect ratio preserving value.
  </body>
</html>
`

// New creates the fiber app with middleware and routes.
func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))
	app.Use(healthcheck.New())
	app.Use(func(c *fiber.Ctx) error {
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", c.GetRespHeader(fiber.HeaderXRequestID))
		return c.Next()
	})

	maxDim := deps.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	h := &handler{snapshotter: deps.Snapshotter, cache: deps.Cache, maxDimension: maxDim}
	app.Get("/", h.help)
	app.Get("/snapshot", h.snapshot)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}

type handler struct {
	snapshotter  Snapshotter
	cache        *cache.Cache
	maxDimension int
}

func (h *handler) help(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(helpPage)
}

func (h *handler) snapshot(c *fiber.Ctx) error {
	raw := c.Query("url")
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Request does not contain a url")
	}
	target, err := fotogopher.NormalizeURL(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid url: "+err.Error())
	}

	width := dimension(c.Query("width"))
	height := dimension(c.Query("height"))
	if width == 0 && height == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Request has both dimensions zero")
	}
	if width > h.maxDimension || height > h.maxDimension {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Requested dimensions exceed %d pixels", h.maxDimension))
	}

	key := cache.Key(target, width, height)
	if data, ok := h.cache.Get(c.UserContext(), key); ok {
		return sendJPEG(c, data)
	}

	logging.Info("Accepted snapshot request", "url", target, "width", width, "height", height)

	data, err := h.snapshotter.Snapshot(c.UserContext(), target, width, height)
	switch {
	case err == nil:
	case errors.Is(err, fotogopher.ErrBusy):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Please try again later, we are too busy now")
	case errors.Is(err, fotogopher.ErrTimeout):
		return fiber.NewError(fiber.StatusGatewayTimeout, "Request for "+target+" timed out")
	default:
		return fiber.NewError(fiber.StatusBadGateway, "Failed to render: "+err.Error())
	}

	h.cache.Set(c.UserContext(), key, data)
	return sendJPEG(c, data)
}

func sendJPEG(c *fiber.Ctx, data []byte) error {
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}

// dimension parses a size parameter; anything but a positive integer is 0.
func dimension(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return 0
	}
	return i
}
