package fotogopher

import (
	"time"

	"github.com/root4loot/fotogopher/internal/config"
	"github.com/root4loot/fotogopher/internal/logging"
	"github.com/root4loot/fotogopher/pkg/browser"
)

// Version is the release of fotogopher.
const Version = "v0.2.0"

// Options contains options for a capture.
type Options struct {
	Browser     browser.LaunchOptions // how the browser is launched
	Timeout     time.Duration         // bound on navigation plus render, 0 waits forever
	JPEGQuality int                   // quality of jpeg and webp output
	Label       bool                  // draw the URL origin onto raster output
	LogLevel    string                // configured level, used when neither Silence nor Verbose is set
	Silence     bool                  // only log errors
	Verbose     bool                  // debug logging
}

// DefaultOptions returns default options.
func DefaultOptions() *Options {
	return &Options{
		Browser:     browser.DefaultLaunchOptions(),
		JPEGQuality: 75,
	}
}

// OptionsFromConfig builds capture options from loaded configuration.
func OptionsFromConfig(cfg config.Config) *Options {
	return &Options{
		Browser: browser.LaunchOptions{
			Engine:                  browser.Engine(cfg.Browser.Engine),
			ChromePath:              cfg.Browser.ChromePath,
			Headless:                cfg.Browser.Headless,
			NoSandbox:               cfg.Browser.NoSandbox,
			IgnoreCertificateErrors: cfg.Browser.IgnoreCertErrors,
			DisableHTTP2:            cfg.Browser.DisableHTTP2,
			UserAgent:               cfg.Browser.UserAgent,
		},
		Timeout:     cfg.Capture.Timeout,
		JPEGQuality: cfg.Capture.JPEGQuality,
		Label:       cfg.Capture.Label,
		LogLevel:    cfg.Logger.Level,
	}
}

// SetLogLevel sets the log level based on the options. Silence and Verbose
// win over LogLevel; with none of them the level is warn, so navigation
// failures still reach stderr.
func SetLogLevel(options *Options) {
	switch {
	case options.Silence:
		logging.SetLogLevel("error")
	case options.Verbose:
		logging.SetLogLevel("debug")
	case options.LogLevel != "":
		logging.SetLogLevel(options.LogLevel)
	default:
		logging.SetLogLevel("warn")
	}
}
