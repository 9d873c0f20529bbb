package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/root4loot/fotogopher"
	"github.com/root4loot/fotogopher/internal/config"
	"github.com/root4loot/fotogopher/pkg/browser"
)

var errUsage = errors.New("usage error")

// CLI holds the parsed command line.
type CLI struct {
	name       string
	TargetURL  string
	OutputPath string
	ConfigPath string
	Engine     string
	Quality    int
	Label      bool
	Silence    bool
	Verbose    bool
	Version    bool
	Help       bool
	Timeout    time.Duration

	// set records which flags were given explicitly, by long name.
	set map[string]bool
}

func newCLI(name string) *CLI {
	return &CLI{name: name, set: map[string]bool{}}
}

// loadConfig reads the config named by --config, falling back to CONFIG_PATH.
func (c *CLI) loadConfig() (config.Config, error) {
	path := c.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return config.LoadFrom(path)
}

// options merges cfg with the flags that were set on the command line.
func (c *CLI) options(cfg config.Config) (*fotogopher.Options, error) {
	opts := fotogopher.OptionsFromConfig(cfg)

	if c.set["timeout"] {
		if c.Timeout < 0 {
			return nil, fmt.Errorf("%w: timeout must not be negative", errUsage)
		}
		opts.Timeout = c.Timeout
	}
	if c.set["engine"] {
		switch e := browser.Engine(c.Engine); e {
		case browser.EngineChromedp, browser.EngineRod:
			opts.Browser.Engine = e
		default:
			return nil, fmt.Errorf("%w: unknown engine %q", errUsage, c.Engine)
		}
	}
	if c.set["quality"] {
		if c.Quality < 1 || c.Quality > 100 {
			return nil, fmt.Errorf("%w: quality must be between 1 and 100", errUsage)
		}
		opts.JPEGQuality = c.Quality
	}
	if c.set["label"] {
		opts.Label = c.Label
	}
	opts.Silence = c.Silence
	opts.Verbose = c.Verbose
	return opts, nil
}
