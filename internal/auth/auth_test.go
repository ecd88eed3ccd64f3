package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		username string
		want     bool
	}{
		{"slowvak", true},
		{"SlowVak", true},
		{"  SLOWVAK ", true},
		{"unknown-user", false},
		{"slowvak2", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.username); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.username, got, tt.want)
		}
	}
}

func TestLogin_AllowedUserRevealsSubmission(t *testing.T) {
	store := &MemoryStore{}
	a := New(store, WithDelay(0))

	for _, name := range []string{"slowvak", "SLOWVAK"} {
		s, err := a.Login(context.Background(), name)
		if err != nil {
			t.Fatalf("Login(%q) error = %v", name, err)
		}
		if !s.CanSubmit() {
			t.Errorf("Login(%q) session cannot submit", name)
		}
		if s.Marker == "" {
			t.Errorf("Login(%q) did not set a session marker", name)
		}
		if store.Session != s {
			t.Errorf("Login(%q) did not persist the session", name)
		}
	}
}

func TestLogin_UnknownUserChangesNothing(t *testing.T) {
	store := &MemoryStore{}
	a := New(store, WithDelay(0))

	s, err := a.Login(context.Background(), "unknown-user")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("Login() error = %v, want ErrNotAllowed", err)
	}
	if s.CanSubmit() || store.Session != (Session{}) {
		t.Error("failed login must not grant or persist anything")
	}

	// Immediate retry with a valid name works
	if _, err := a.Login(context.Background(), "slowvak"); err != nil {
		t.Errorf("retry Login() error = %v", err)
	}
}

func TestLogin_EmptyUsername(t *testing.T) {
	a := New(&MemoryStore{}, WithDelay(0))
	if _, err := a.Login(context.Background(), "   "); !errors.Is(err, ErrEmptyUsername) {
		t.Errorf("Login() error = %v, want ErrEmptyUsername", err)
	}
}

func TestLogin_DelayHonoursContext(t *testing.T) {
	store := &MemoryStore{}
	a := New(store, WithDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := a.Login(ctx, "slowvak")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Login() error = %v, want deadline exceeded", err)
	}
	if store.Session != (Session{}) {
		t.Error("cancelled login persisted a session")
	}
}

func TestLogin_Limiter(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	a := New(&MemoryStore{}, WithDelay(0), WithLimiter(limiter))

	if _, err := a.Login(context.Background(), "slowvak"); err != nil {
		t.Fatalf("first Login() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := a.Login(ctx, "slowvak"); err == nil {
		t.Error("second Login() should wait on the limiter and fail with the context")
	}
}

func TestLogout(t *testing.T) {
	store := &MemoryStore{}
	a := New(store, WithDelay(0))
	if _, err := a.Login(context.Background(), "slowvak"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := a.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	s, err := a.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if s != (Session{}) || s.CanSubmit() {
		t.Errorf("Current() after logout = %+v", s)
	}
}

func TestSession_CanSubmitRechecksAllowList(t *testing.T) {
	// A hand-edited state file naming someone else does not unlock submission
	if (Session{Username: "mallory", Marker: "abc"}).CanSubmit() {
		t.Error("CanSubmit() = true for a user not on the allow-list")
	}
}

func TestNewMarker_Unique(t *testing.T) {
	m1, err := NewMarker("slowvak")
	if err != nil {
		t.Fatalf("NewMarker() error = %v", err)
	}
	m2, _ := NewMarker("slowvak")
	if m1 == m2 {
		t.Error("markers should differ between logins")
	}
	if len(m1) != 32 {
		t.Errorf("marker length = %d, want 32", len(m1))
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	store := NewFileStore(path)

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if s != (Session{}) {
		t.Errorf("Load() on missing file = %+v", s)
	}

	a := New(store, WithDelay(0))
	want, err := a.Login(context.Background(), "slowvak")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// A fresh store over the same file sees the session (survives reloads)
	got, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := a.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Logout() should remove the session file")
	}
	if err := store.Clear(); err != nil {
		t.Errorf("Clear() on missing file error = %v", err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("Load() should fail on a corrupt file")
	}
}
