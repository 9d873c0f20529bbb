package fotogopher

import (
	"errors"
	"fmt"
)

// Exit codes of the capture command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var (
	ErrMissingURL = errors.New("missing target url")
	ErrNavigation = errors.New("navigation failed")
	ErrRender     = errors.New("render failed")
	ErrWrite      = errors.New("write failed")
	ErrBusy       = errors.New("too busy, try again later")
	ErrTimeout    = errors.New("snapshot timed out")
)

// NavigationError is returned when the engine reports that a page failed to
// load.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() []error {
	return []error{ErrNavigation, e.Err}
}

// ExitCode maps the result of a capture to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrMissingURL):
		return ExitUsage
	default:
		return ExitFailure
	}
}
