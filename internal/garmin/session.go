package garmin

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// sessionToken is the stored session for one user, written by an external
// login flow. Authentication itself is out of scope here; the provider only
// loads what the login flow persisted.
type sessionToken struct {
	AccessToken string `json:"access_token"`
	ProfileID   string `json:"profile_id"`
}

// SessionProvider turns stored per-user session tokens into ready clients.
// Tokens live under <dir>/<userID>/session.json.
type SessionProvider struct {
	dir     string
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

// NewSessionProvider builds a provider over a token directory.
func NewSessionProvider(dir, baseURL string, timeout time.Duration, log *slog.Logger) *SessionProvider {
	return &SessionProvider{dir: dir, baseURL: baseURL, timeout: timeout, log: log}
}

// ClientFor returns an authenticated client for the user, or
// ErrNotAuthenticated when no stored session exists.
func (p *SessionProvider) ClientFor(userID int64) (Source, error) {
	path := filepath.Join(p.dir, strconv.FormatInt(userID, 10), "session.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no session for user %d", ErrNotAuthenticated, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session for user %d: %w", userID, err)
	}

	var tok sessionToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing session for user %d: %w", userID, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty session token for user %d", ErrNotAuthenticated, userID)
	}

	return NewClient(p.baseURL, tok.AccessToken, tok.ProfileID, p.timeout, p.log), nil
}
