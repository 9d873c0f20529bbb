package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/root4loot/fotogopher"
	"github.com/root4loot/fotogopher/internal/logging"
	"github.com/root4loot/fotogopher/pkg/browser"
)

// launcher starts a browser; browser.New outside of tests.
type launcher func(browser.LaunchOptions) (browser.Browser, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, browser.New)
	stop()
	os.Exit(code)
}

// run executes one capture and returns the process exit code. Only the
// capture payload is written to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, launch launcher) int {
	cli := newCLI("capture")
	if err := cli.parseFlags(args); err != nil {
		fmt.Fprintf(stderr, "\n%v\n\n", err)
		cli.usage(stderr)
		return fotogopher.ExitUsage
	}

	if cli.Help {
		cli.banner(stdout)
		cli.usage(stdout)
		return fotogopher.ExitOK
	}
	if cli.Version {
		fmt.Fprintln(stdout, "capture", fotogopher.Version)
		return fotogopher.ExitOK
	}
	if cli.TargetURL == "" {
		fmt.Fprintf(stderr, "\n%s\n\n", "Missing target")
		cli.usage(stderr)
		return fotogopher.ExitCode(fotogopher.ErrMissingURL)
	}

	cfg, err := cli.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return fotogopher.ExitUsage
	}
	logging.InitLogger(cfg.Logger.File, cfg.Logger.MaxSizeMB, cfg.Logger.MaxBackups, cfg.Logger.MaxAgeDays, cfg.Logger.Compress, cfg.Logger.Level)

	opts, err := cli.options(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "\n%v\n\n", err)
		cli.usage(stderr)
		return fotogopher.ExitUsage
	}
	fotogopher.SetLogLevel(opts)

	b, err := launch(opts.Browser)
	if err != nil {
		logging.Error("could not start browser", "engine", string(opts.Browser.Engine), "error", err)
		return fotogopher.ExitFailure
	}
	defer func() {
		if err := b.Close(); err != nil {
			logging.Debug("closing browser", "error", err)
		}
	}()

	req := fotogopher.Request{TargetURL: cli.TargetURL, OutputPath: cli.OutputPath}
	err = fotogopher.NewCapturer(b, opts).Capture(ctx, req, stdout)
	code := fotogopher.ExitCode(err)
	logging.Debug("capture finished", "url", cli.TargetURL, "exit_code", code)
	return code
}
