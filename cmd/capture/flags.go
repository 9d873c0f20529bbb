package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/root4loot/fotogopher"
)

const author = "@danielantonsen"

func (c *CLI) banner(w io.Writer) {
	fmt.Fprintln(w, "\ncapture", fotogopher.Version, "by", author)
}

func (c *CLI) usage(out io.Writer) {
	w := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	defaults := fotogopher.DefaultOptions()

	fmt.Fprintf(w, "Usage:\t%s [options] <url> [outputPath]\n", c.name)

	fmt.Fprintf(w, "\nOUTPUT:\n")
	fmt.Fprintf(w, "\t%s\t%s\n", "<outputPath>", "write the capture to a file, format from the extension (png, jpg, webp, gif, bmp, pdf)")
	fmt.Fprintf(w, "\t%s\t%s\n", "", "without it a base64 JPEG line is printed to stdout")

	fmt.Fprintf(w, "\nCONFIGURATIONS:\n")
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %s)\n", "-t", "--timeout", "bound on navigation and rendering, 0 waits forever", durationOrNone(defaults.Timeout))
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %s)\n", "-e", "--engine", "browser engine (chromedp, rod)", defaults.Browser.Engine)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %d)\n", "-q", "--quality", "jpeg and webp quality (1-100)", defaults.JPEGQuality)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %v)\n", "-l", "--label", "draw the URL origin onto the image", defaults.Label)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: $CONFIG_PATH)\n", "-c", "--config", "path to a YAML config file")

	fmt.Fprintf(w, "\nLOGGING:\n")
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-s", "--silence", "only log errors")
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-v", "--verbose", "verbose output")
	fmt.Fprintf(w, "\t%s   %s\t%s\n", "  ", "--version", "display version")

	w.Flush()
	fmt.Fprintln(out, "")
}

func durationOrNone(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

// parseFlags parses args into the CLI. Flags must come before the
// positional arguments.
func (c *CLI) parseFlags(args []string) error {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	defaults := fotogopher.DefaultOptions()

	fs.DurationVar(&c.Timeout, "timeout", defaults.Timeout, "")
	fs.DurationVar(&c.Timeout, "t", defaults.Timeout, "")
	fs.StringVar(&c.Engine, "engine", string(defaults.Browser.Engine), "")
	fs.StringVar(&c.Engine, "e", string(defaults.Browser.Engine), "")
	fs.IntVar(&c.Quality, "quality", defaults.JPEGQuality, "")
	fs.IntVar(&c.Quality, "q", defaults.JPEGQuality, "")
	fs.BoolVar(&c.Label, "label", defaults.Label, "")
	fs.BoolVar(&c.Label, "l", defaults.Label, "")
	fs.StringVar(&c.ConfigPath, "config", "", "")
	fs.StringVar(&c.ConfigPath, "c", "", "")

	fs.BoolVar(&c.Silence, "s", false, "")
	fs.BoolVar(&c.Silence, "silence", false, "")
	fs.BoolVar(&c.Verbose, "v", false, "")
	fs.BoolVar(&c.Verbose, "verbose", false, "")
	fs.BoolVar(&c.Help, "help", false, "")
	fs.BoolVar(&c.Help, "h", false, "")
	fs.BoolVar(&c.Version, "version", false, "")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		c.set[canonical(f.Name)] = true
	})

	rest := fs.Args()
	if len(rest) > 2 {
		return fmt.Errorf("unexpected arguments: %v", rest[2:])
	}
	if len(rest) > 0 {
		c.TargetURL = rest[0]
	}
	if len(rest) > 1 {
		c.OutputPath = rest[1]
	}
	return nil
}

// canonical maps short flag names to their long form.
func canonical(name string) string {
	switch name {
	case "t":
		return "timeout"
	case "e":
		return "engine"
	case "q":
		return "quality"
	case "l":
		return "label"
	case "c":
		return "config"
	}
	return name
}
