package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/root4loot/fotogopher"
	"github.com/root4loot/fotogopher/internal/cache"
	"github.com/root4loot/fotogopher/internal/config"
	"github.com/root4loot/fotogopher/internal/logging"
	"github.com/root4loot/fotogopher/internal/server"
	"github.com/root4loot/fotogopher/pkg/browser"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("Invalid configuration", "error", err)
		os.Exit(fotogopher.ExitUsage)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	opts := fotogopher.OptionsFromConfig(cfg)
	b, err := browser.New(opts.Browser)
	if err != nil {
		logging.Error("Failed to start browser", "engine", cfg.Browser.Engine, "error", err)
		os.Exit(fotogopher.ExitFailure)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := fotogopher.NewPool(fotogopher.NewCapturer(b, opts), fotogopher.PoolOptions{
		Workers:     cfg.Server.Workers,
		Timeout:     cfg.Server.Timeout,
		BusyTimeout: cfg.Server.BusyTimeout,
		JPEGQuality: cfg.Capture.JPEGQuality,
	})
	pool.Start(ctx)

	var c *cache.Cache
	if cfg.Cache.Enabled {
		c = cache.New(cfg.Cache.RedisAddr, cfg.Cache.DB, cfg.Cache.TTL)
	}

	app := server.New(server.Deps{Snapshotter: pool, Cache: c, MaxDimension: cfg.Server.MaxDimension})
	logging.Info("Starting snapshot service", "addr", cfg.Server.Addr, "engine", cfg.Browser.Engine, "workers", cfg.Server.Workers, "cache", cfg.Cache.Enabled)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	serveErr := serve(app, cfg.Server.Addr, stop)

	cancel()
	if err := c.Close(); err != nil {
		logging.Warn("Closing redis client", "error", err)
	}
	if err := b.Close(); err != nil {
		logging.Warn("Closing browser", "error", err)
	}
	if serveErr != nil {
		os.Exit(fotogopher.ExitFailure)
	}
}

// serve runs the Fiber app until it fails to listen or a shutdown signal
// arrives on stop. A signal triggers a graceful shutdown with a 5s deadline.
func serve(app *fiber.App, addr string, stop <-chan os.Signal) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			logging.Error("Server error", "addr", addr, "error", err)
		}
		return err
	case <-stop:
	}

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		return err
	}

	logging.Info("Server stopped cleanly")
	return nil
}
