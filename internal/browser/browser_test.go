package browser

import (
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestCommand(t *testing.T) {
	const link = "https://github.com/slowvak/MIDeL/issues/new?title=x"
	tests := []struct {
		goos     string
		wantBin  string
		wantLast string
	}{
		{"darwin", "open", link},
		{"linux", "xdg-open", link},
		{"windows", "rundll32", link},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			o := &Opener{goos: tt.goos}
			cmd, err := o.Command(link)
			if err != nil {
				t.Fatalf("Command() error = %v", err)
			}
			if filepath.Base(cmd.Args[0]) != tt.wantBin {
				t.Errorf("binary = %q, want %q", cmd.Args[0], tt.wantBin)
			}
			if got := cmd.Args[len(cmd.Args)-1]; got != tt.wantLast {
				t.Errorf("last arg = %q", got)
			}
		})
	}
}

func TestCommand_Errors(t *testing.T) {
	o := &Opener{goos: "plan9"}
	if _, err := o.Command("https://example.org"); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("Command() error = %v, want ErrUnsupportedPlatform", err)
	}

	o = &Opener{goos: "linux"}
	for _, bad := range []string{"file:///etc/passwd", "example.org", "javascript:alert(1)"} {
		if _, err := o.Command(bad); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Command(%q) error = %v, want ErrInvalidURL", bad, err)
		}
	}
}

func TestOpen_UsesStarter(t *testing.T) {
	var started *exec.Cmd
	o := &Opener{goos: "linux", start: func(c *exec.Cmd) error { started = c; return nil }}
	if err := o.Open("https://example.org"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if started == nil || started.Args[1] != "https://example.org" {
		t.Errorf("started = %v", started)
	}

	o.start = func(*exec.Cmd) error { return errors.New("boom") }
	if err := o.Open("https://example.org"); err == nil {
		t.Error("Open() should surface start errors")
	}
}
