// Package clipboard provides cross-platform clipboard access via shell commands.
package clipboard

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when clipboard access is not available.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// command returns the copy command and its arguments for goos, or
// ErrClipboardUnavailable. On Linux, Wayland's wl-copy is preferred over
// xclip and xsel.
func command(goos string) (string, []string, error) {
	switch goos {
	case "darwin":
		if _, err := lookPath("pbcopy"); err == nil {
			return "pbcopy", nil, nil
		}
	case "windows":
		if _, err := lookPath("clip"); err == nil {
			return "clip", nil, nil
		}
	case "linux", "freebsd":
		candidates := []struct {
			name string
			args []string
		}{
			{"wl-copy", nil},
			{"xclip", []string{"-selection", "clipboard"}},
			{"xsel", []string{"--clipboard", "--input"}},
		}
		for _, c := range candidates {
			if _, err := lookPath(c.name); err == nil {
				return c.name, c.args, nil
			}
		}
	}
	return "", nil, ErrClipboardUnavailable
}

// IsAvailable checks if clipboard functionality is available on this system.
func IsAvailable() bool {
	_, _, err := command(runtime.GOOS)
	return err == nil
}

// Copy copies the given text to the system clipboard.
// Returns ErrClipboardUnavailable if clipboard access is not available.
func Copy(text string) error {
	name, args, err := command(runtime.GOOS)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
