package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authBody = `{"user":{"id":"u1","username":"ana","display_name":"Ana"},"session":{"id":"s1","user_id":"u1","csrf":"csrf-new","token":"tok-new","expiration":"2030-01-01T00:00:00Z"}}`

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-Session-Token"))

		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ana", req.Username)
		assert.Equal(t, "hunter2", req.Password)
		_, _ = w.Write([]byte(authBody))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Login(context.Background(), "ana", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.User.ID)
	assert.Equal(t, "tok-new", got.Session.Token)
	assert.Equal(t, "csrf-new", got.Session.CSRF)
	assert.Equal(t, 2030, got.Session.Expiration.Year())
}

func TestAuthenticateSendsBothTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authenticate", r.URL.Path)
		assert.Equal(t, "sess-123", r.Header.Get("X-Session-Token"))
		assert.Equal(t, "csrf-456", r.Header.Get("X-CSRF-Token"))
		_, _ = w.Write([]byte(authBody))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Authenticate(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.User.Username)
}

func TestUpdateUserOmitsAbsentFields(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"user":{"id":"u1","username":"ana","display_name":"Ana B"}}`))
	}))
	defer srv.Close()

	name := "Ana B"
	got, err := NewClient(srv.URL).UpdateUser(context.Background(), testCreds, UserPatch{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", got.DisplayName)
	assert.Equal(t, map[string]any{"display_name": "Ana B"}, raw)
}

func TestUserPatchEmpty(t *testing.T) {
	assert.True(t, UserPatch{}.Empty())
	pw := "x"
	assert.False(t, UserPatch{Password: &pw}.Empty())
}
