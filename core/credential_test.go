package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCredTestContext(t *testing.T, store *sessions.CookieStore) (*gin.Context, *sessions.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Get(c.Request, sessionName)
	require.NoError(t, err)
	c.Set("session", sess)
	return c, sess
}

func TestSessionCredentialStore(t *testing.T) {
	cfg := testConfig()
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	creds := NewSessionCredentialStore(cfg)

	t.Run("round trip", func(t *testing.T) {
		c, _ := newCredTestContext(t, store)

		in := Credential{
			Token:       "tok-1",
			VendorID:    "vnd_1",
			VendorName:  "Acme Movers",
			Permissions: []string{PermViewLeads, PermManageProfile},
		}
		require.NoError(t, creds.Set(c, in))

		out, err := creds.Get(c)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", out.Token)
		assert.Equal(t, "vnd_1", out.VendorID)
		assert.Equal(t, "Acme Movers", out.VendorName)
		assert.Equal(t, in.Permissions, out.Permissions)
	})

	t.Run("token never enters the vendor info blob", func(t *testing.T) {
		c, sess := newCredTestContext(t, store)

		require.NoError(t, creds.Set(c, Credential{Token: "tok-secret", VendorID: "vnd_1"}))
		info, _ := sess.Values[sessionVendorInfoKey].(string)
		assert.NotContains(t, info, "tok-secret")
	})

	t.Run("empty session is not authenticated", func(t *testing.T) {
		c, _ := newCredTestContext(t, store)
		_, err := creds.Get(c)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("partial pair is treated as logged out", func(t *testing.T) {
		c, sess := newCredTestContext(t, store)
		sess.Values[sessionTokenKey] = "tok-1"

		_, err := creds.Get(c)
		assert.ErrorIs(t, err, ErrNotAuthenticated)

		delete(sess.Values, sessionTokenKey)
		sess.Values[sessionVendorInfoKey] = `{"vendor_id":"vnd_1"}`
		_, err = creds.Get(c)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("corrupt vendor info is a decode error, not logged out", func(t *testing.T) {
		c, sess := newCredTestContext(t, store)
		sess.Values[sessionTokenKey] = "tok-1"
		sess.Values[sessionVendorInfoKey] = "{not json"

		_, err := creds.Get(c)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("set rotates the session but keeps the csrf token", func(t *testing.T) {
		c, sess := newCredTestContext(t, store)
		sess.Values[sessionCSRFKey] = "csrf-1"
		sess.Values["stray"] = "value"

		require.NoError(t, creds.Set(c, Credential{Token: "tok-1", VendorID: "vnd_1"}))

		assert.Equal(t, "csrf-1", sess.Values[sessionCSRFKey])
		_, hasStray := sess.Values["stray"]
		assert.False(t, hasStray)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		c, _ := newCredTestContext(t, store)

		require.NoError(t, creds.Set(c, Credential{Token: "tok-1", VendorID: "vnd_1"}))
		require.NoError(t, creds.Clear(c))

		_, err := creds.Get(c)
		assert.ErrorIs(t, err, ErrNotAuthenticated)

		require.NoError(t, creds.Clear(c))
		_, err = creds.Get(c)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("no session on context", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := creds.Get(c)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Error(t, creds.Set(c, Credential{Token: "t"}))
		assert.NoError(t, creds.Clear(c))
	})
}
