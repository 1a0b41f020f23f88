package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/cine-social/cine-cli/internal/api"
)

const sessionFile = "cine/session.json"

var (
	// ErrNoSession is returned when no session file is found
	ErrNoSession = errors.New("no session found")

	// ErrSessionExpired is returned when the stored session is past its expiration
	ErrSessionExpired = errors.New("session expired")
)

// Session is the persisted login: the signed-in user and the tokens the API
// expects on every request.
type Session struct {
	User       api.User  `json:"user"`
	Token      string    `json:"token"`
	CSRF       string    `json:"csrf"`
	Expiration time.Time `json:"expiration"`
}

// FromResponse builds a Session from a login, register or authenticate response.
func FromResponse(resp *api.AuthResponse) *Session {
	return &Session{
		User:       resp.User,
		Token:      resp.Session.Token,
		CSRF:       resp.Session.CSRF,
		Expiration: resp.Session.Expiration,
	}
}

// Credentials returns the request credentials of the session.
func (s *Session) Credentials() api.Credentials {
	return api.Credentials{SessionToken: s.Token, CSRF: s.CSRF}
}

// Expired reports whether the session is past its expiration at now. A zero
// expiration never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.Expiration.IsZero() && !now.Before(s.Expiration)
}

// PersistSession saves the session to the XDG state directory
func PersistSession(sess *Session) error {
	fPath, err := xdg.StateFile(sessionFile)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(fPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// LoadSessionFile loads the session from the XDG state directory
func LoadSessionFile() (*Session, error) {
	fPath, err := xdg.SearchStateFile(sessionFile)
	if err != nil {
		return nil, ErrNoSession
	}

	data, err := os.ReadFile(fPath)
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// WipeSession deletes the session file
func WipeSession() error {
	fPath, err := xdg.SearchStateFile(sessionFile)
	if err != nil {
		// nothing to wipe
		return nil
	}
	return os.Remove(fPath)
}

// RequireSession loads the session and returns a descriptive error if the
// user is not logged in or the session has expired.
func RequireSession() (*Session, error) {
	sess, err := LoadSessionFile()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, fmt.Errorf("not logged in, run: cine account login --username <name> --password <password>: %w", err)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, fmt.Errorf("session of %s expired on %s, run: cine account login: %w",
			sess.User.Username, sess.Expiration.Format(time.RFC3339), ErrSessionExpired)
	}
	return sess, nil
}

// LookupSession is RequireSession for commands that can also run anonymously:
// with no session file it returns nil, nil unless required is set.
func LookupSession(required bool) (*Session, error) {
	sess, err := RequireSession()
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, ErrNoSession) && !required:
		return nil, nil
	default:
		return nil, fmt.Errorf("authentication required: %w", err)
	}
}
