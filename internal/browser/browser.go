// Package browser opens links in the user's default web browser.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ErrUnsupportedPlatform is returned on platforms without a known opener.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ErrInvalidURL is returned for anything but absolute http(s) links.
var ErrInvalidURL = errors.New("not an http(s) URL")

// Opener starts the platform's URL handler.
type Opener struct {
	goos  string
	start func(*exec.Cmd) error
}

// NewOpener creates an opener for the running platform.
func NewOpener() *Opener {
	return &Opener{
		goos:  runtime.GOOS,
		start: (*exec.Cmd).Start,
	}
}

// Command returns the command that would open rawURL.
func (o *Opener) Command(rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	switch o.goos {
	case "darwin":
		return exec.Command("open", rawURL), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", rawURL), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, o.goos)
	}
}

// Open opens rawURL without waiting for the browser to exit.
func (o *Opener) Open(rawURL string) error {
	cmd, err := o.Command(rawURL)
	if err != nil {
		return err
	}
	if err := o.start(cmd); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	return nil
}
