package core

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	sessionTokenKey      = "vendor_token"
	sessionVendorInfoKey = "vendor_info"
)

// ErrNotAuthenticated is returned when no usable credential is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// Credential is a fully authenticated vendor session: the bearer token plus
// the vendor metadata returned by the platform at login. It is persisted
// all-or-nothing; a partial pair is treated as logged out.
type Credential struct {
	Token       string   `json:"-"`
	VendorID    string   `json:"vendor_id"`
	VendorName  string   `json:"vendor_name"`
	Permissions []string `json:"permissions"`
}

// CredentialStore persists the vendor credential between requests.
// Consumers depend on this interface so tests can swap in a memory store.
type CredentialStore interface {
	// Get returns the stored credential. ErrNotAuthenticated when the pair
	// is absent; a decode error when the vendor-info blob is corrupt.
	Get(c *gin.Context) (*Credential, error)
	// Set replaces the stored credential wholesale.
	Set(c *gin.Context, cred Credential) error
	// Clear wipes both entries. Idempotent.
	Clear(c *gin.Context) error
}

// SessionCredentialStore keeps the token and vendor-info JSON as two values
// in the signed cookie session established by SessionMiddleware.
type SessionCredentialStore struct {
	cfg Config
}

func NewSessionCredentialStore(cfg Config) *SessionCredentialStore {
	return &SessionCredentialStore{cfg: cfg}
}

func (s *SessionCredentialStore) Get(c *gin.Context) (*Credential, error) {
	sess := sessionFromContext(c)
	if sess == nil {
		return nil, ErrNotAuthenticated
	}
	token, _ := sess.Values[sessionTokenKey].(string)
	infoRaw, _ := sess.Values[sessionVendorInfoKey].(string)
	if token == "" || infoRaw == "" {
		return nil, ErrNotAuthenticated
	}
	var cred Credential
	if err := json.Unmarshal([]byte(infoRaw), &cred); err != nil {
		return nil, err
	}
	cred.Token = token
	return &cred, nil
}

func (s *SessionCredentialStore) Set(c *gin.Context, cred Credential) error {
	sess := sessionFromContext(c)
	if sess == nil {
		return errors.New("no session on request")
	}
	info, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	// Reset session values on login (simple rotation), then write both
	// entries in one save so they land together or not at all.
	csrf, _ := sess.Values[sessionCSRFKey].(string)
	sess.Values = map[interface{}]interface{}{}
	if csrf != "" {
		sess.Values[sessionCSRFKey] = csrf
	}
	sess.Values[sessionTokenKey] = cred.Token
	sess.Values[sessionVendorInfoKey] = string(info)
	applySessionOptions(s.cfg, sess)
	return sess.Save(c.Request, c.Writer)
}

func (s *SessionCredentialStore) Clear(c *gin.Context) error {
	sess := sessionFromContext(c)
	if sess == nil {
		return nil
	}
	delete(sess.Values, sessionTokenKey)
	delete(sess.Values, sessionVendorInfoKey)
	applySessionOptions(s.cfg, sess)
	return sess.Save(c.Request, c.Writer)
}

func sessionFromContext(c *gin.Context) *sessions.Session {
	sessionAny, _ := c.Get("session")
	sess, _ := sessionAny.(*sessions.Session)
	return sess
}
