package garmin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestClientForMissingSession verifies the not-authenticated sentinel when no
// token was ever stored for the user.
func TestClientForMissingSession(t *testing.T) {
	p := NewSessionProvider(t.TempDir(), "https://example.com", time.Second, testLogger())

	_, err := p.ClientFor(42)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

// TestClientForStoredSession verifies a stored token yields a usable client.
func TestClientForStoredSession(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "42")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	token := `{"access_token":"abc","profile_id":"profile-42"}`
	if err := os.WriteFile(filepath.Join(userDir, "session.json"), []byte(token), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewSessionProvider(dir, "https://example.com", time.Second, testLogger())
	src, err := p.ClientFor(42)
	if err != nil {
		t.Fatalf("ClientFor: %v", err)
	}
	if src == nil {
		t.Fatal("ClientFor returned nil source")
	}
}

// TestClientForEmptyToken verifies that a present but empty token file is
// treated the same as no session.
func TestClientForEmptyToken(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "7")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "session.json"), []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewSessionProvider(dir, "https://example.com", time.Second, testLogger())
	if _, err := p.ClientFor(7); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}
