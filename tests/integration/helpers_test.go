// Package integration provides integration tests for midel commands.
package integration

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	midelBinary     string
	midelBinaryOnce sync.Once
	midelBinaryErr  error
)

// getMidelBinary builds the midel binary once and returns its path.
func getMidelBinary(t *testing.T) string {
	t.Helper()
	midelBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			midelBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "midel-test-*")
		if err != nil {
			midelBinaryErr = err
			return
		}
		midelBinary = filepath.Join(tmpDir, "midel")

		cmd := exec.Command("go", "build", "-o", midelBinary, "./cmd/midel")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			midelBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if midelBinaryErr != nil {
		t.Fatalf("failed to build midel: %v", midelBinaryErr)
	}
	return midelBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

const testCatalog = `[
  {
    "year": 2024,
    "publications": [
      {"id": "2024_smith_deep_learning_for_ct", "title": "Deep Learning for CT", "url": "https://example.org/ct.pdf", "type": "journal", "status": "published"},
      {"id": "2024_jones_segmentation", "title": "Segmentation in Progress", "url": "path", "type": "journal", "status": "in_process"}
    ]
  },
  {
    "year": "older",
    "publications": [
      {"id": "2019_lee_radiomics", "title": "Radiomics & Friends", "url": "https://example.org/old", "type": "conference", "status": "published"}
    ]
  }
]
`

// setupTestSite creates a site root with .midel/ and a catalog at the
// default path. XDG directories live under the site so tests never touch
// the real home directory.
func setupTestSite(t *testing.T) string {
	t.Helper()
	siteDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(siteDir, ".midel", "cache"), 0755); err != nil {
		t.Fatal(err)
	}
	catalogDir := filepath.Join(siteDir, "assets", "html")
	if err := os.MkdirAll(catalogDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(catalogDir, "publications.json"), []byte(testCatalog), 0644); err != nil {
		t.Fatal(err)
	}
	return siteDir
}

// runMidel executes midel in siteDir and returns stdout and the exit code.
func runMidel(t *testing.T, siteDir string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(getMidelBinary(t), args...)
	cmd.Dir = siteDir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(siteDir, "xdg", "config"),
		"XDG_STATE_HOME="+filepath.Join(siteDir, "xdg", "state"),
		"MIDEL_LOGIN_DELAY=0s",
		"GITHUB_TOKEN=",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("running midel %v: %v", args, err)
	}
	if code != 0 {
		t.Logf("midel %v exited %d; stderr: %s", args, code, stderr.String())
	}
	return stdout.String(), code
}
