package account

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/cine-social/cine-cli/internal/api"
	"github.com/cine-social/cine-cli/internal/auth"
	"github.com/cine-social/cine-cli/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func setupTestXDG(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmpDir)
	xdg.Reload()
	return tmpDir
}

func runAccount(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := &cli.Command{
		Name:     "cine",
		Writer:   &buf,
		Flags:    config.Flags(),
		Commands: []*cli.Command{newCmdAccount()},
	}
	full := append([]string{"cine", "--api-url", srv.URL, "account"}, args...)
	err := app.Run(context.Background(), full)
	return buf.String(), err
}

func authBody(username, token, csrf string) map[string]any {
	return map[string]any{
		"user": map[string]any{"id": "u-1", "username": username, "display_name": "Alice"},
		"session": map[string]any{
			"id":         "s-1",
			"user_id":    "u-1",
			"token":      token,
			"csrf":       csrf,
			"expiration": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		},
	}
}

func TestCmdAccountSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range CmdAccount.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"login", "register", "logout", "status", "update", "delete"} {
		if !names[want] {
			t.Errorf("missing subcommand: %s", want)
		}
	}
}

func TestLogin(t *testing.T) {
	setupTestXDG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "hunter2", body["password"])
		json.NewEncoder(w).Encode(authBody("alice", "tok-1", "csrf-1"))
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "login", "-u", "alice", "-p", "hunter2")

	require.NoError(t, err)
	assert.Equal(t, "Logged in as Alice (@alice)\n", out)
	sess, err := auth.LoadSessionFile()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "csrf-1", sess.CSRF)
	assert.Equal(t, "alice", sess.User.Username)
}

func TestLoginRejected(t *testing.T) {
	setupTestXDG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "message": "Invalid username or password"})
	}))
	defer srv.Close()

	_, err := runAccount(t, srv, "login", "-u", "alice", "-p", "wrong")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid username or password")
	_, lerr := auth.LoadSessionFile()
	assert.ErrorIs(t, lerr, auth.ErrNoSession)
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
	setupTestXDG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register", r.URL.Path)
		var in api.RegisterInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "bob@example.com", in.Email)
		assert.Equal(t, "bob", in.DisplayName)
		json.NewEncoder(w).Encode(authBody("bob", "tok-b", "csrf-b"))
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "register", "--email", "bob@example.com", "-u", "bob", "-p", "pw")

	require.NoError(t, err)
	assert.Contains(t, out, "Registered and logged in")
	sess, err := auth.LoadSessionFile()
	require.NoError(t, err)
	assert.Equal(t, "tok-b", sess.Token)
}

func TestStatusRotatesSession(t *testing.T) {
	setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{
		User:       api.User{ID: "u-1", Username: "alice"},
		Token:      "old-tok",
		CSRF:       "old-csrf",
		Expiration: time.Now().Add(time.Hour),
	}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authenticate", r.URL.Path)
		assert.Equal(t, "old-tok", r.Header.Get("X-Session-Token"))
		assert.Equal(t, "old-csrf", r.Header.Get("X-CSRF-Token"))
		json.NewEncoder(w).Encode(authBody("alice", "new-tok", "new-csrf"))
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "User:     Alice (@alice)")
	assert.Contains(t, out, "API:      "+srv.URL)
	sess, err := auth.LoadSessionFile()
	require.NoError(t, err)
	assert.Equal(t, "new-tok", sess.Token)
	assert.Equal(t, "new-csrf", sess.CSRF)
}

func TestStatusNotLoggedIn(t *testing.T) {
	setupTestXDG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	_, err := runAccount(t, srv, "status")

	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestStatusRejectedByServer(t *testing.T) {
	setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{Token: "tok", CSRF: "csrf"}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "message": "Session expired"})
	}))
	defer srv.Close()

	_, err := runAccount(t, srv, "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session rejected")
}

func TestLogout(t *testing.T) {
	tmpDir := setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{Token: "tok", CSRF: "csrf"}))
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "logout")

	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	assert.True(t, called.Load())
	_, statErr := os.Stat(filepath.Join(tmpDir, "cine", "session.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLogoutServerDown(t *testing.T) {
	setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{Token: "tok", CSRF: "csrf"}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "logout")

	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	_, lerr := auth.LoadSessionFile()
	assert.ErrorIs(t, lerr, auth.ErrNoSession)
}

func TestLogoutWithoutSession(t *testing.T) {
	setupTestXDG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "logout")

	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)
}

func TestUpdate(t *testing.T) {
	setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{
		User:  api.User{ID: "u-1", Username: "alice"},
		Token: "tok",
		CSRF:  "csrf",
	}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"display_name": "Alice L."}, body)
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "u-1", "username": "alice", "display_name": "Alice L."},
		})
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "update", "--display-name", "Alice L.")

	require.NoError(t, err)
	assert.Contains(t, out, "Account updated")
	sess, err := auth.LoadSessionFile()
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", sess.User.DisplayName)
	assert.Equal(t, "tok", sess.Token)
}

func TestUpdateNothing(t *testing.T) {
	setupTestXDG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	_, err := runAccount(t, srv, "update")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestDeleteAccount(t *testing.T) {
	setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{
		User:  api.User{ID: "u-1", Username: "alice"},
		Token: "tok",
		CSRF:  "csrf",
	}))
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "csrf", r.Header.Get("X-CSRF-Token"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := runAccount(t, srv, "delete", "--yes")

	require.NoError(t, err)
	assert.Equal(t, "Deleted account @alice\n", out)
	assert.True(t, called.Load())
	_, lerr := auth.LoadSessionFile()
	assert.ErrorIs(t, lerr, auth.ErrNoSession)
}

func TestDeleteAccountNeedsConfirmation(t *testing.T) {
	setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{Token: "tok", CSRF: "csrf"}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	_, err := runAccount(t, srv, "delete")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	_, lerr := auth.LoadSessionFile()
	assert.NoError(t, lerr)
}

func TestDeleteAccountFailureKeepsSession(t *testing.T) {
	setupTestXDG(t)
	require.NoError(t, auth.PersistSession(&auth.Session{Token: "tok", CSRF: "csrf"}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "forbidden", "message": "Invalid CSRF token"})
	}))
	defer srv.Close()

	_, err := runAccount(t, srv, "delete", "--yes")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid CSRF token")
	_, lerr := auth.LoadSessionFile()
	assert.NoError(t, lerr)
}
