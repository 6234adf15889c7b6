package core

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const credentialContextKey = "vendor_credential"

// RequireVendor guards every portal route. A missing or undecodable
// credential clears the store (never keep a corrupt partial pair) and sends
// the browser back to the login page; API-style requests get a 401 instead.
func RequireVendor(creds CredentialStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := creds.Get(c)
		if err != nil {
			if !errors.Is(err, ErrNotAuthenticated) {
				// Corrupt vendor-info blob: degrade to logged out.
				_ = creds.Clear(c)
			}
			redirectToLogin(c)
			c.Abort()
			return
		}
		c.Set(credentialContextKey, cred)
		c.Next()
	}
}

// RequirePermission gates a route on one permission. Runs after RequireVendor.
func RequirePermission(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := CredentialFromContext(c)
		if cred == nil || !HasPermission(cred.Permissions, required) {
			if wantsJSON(c) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "missing permission: "+required)
			} else {
				c.Redirect(http.StatusSeeOther, "/vendor/portal")
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

// CredentialFromContext returns the credential placed by RequireVendor, or
// nil outside a guarded route.
func CredentialFromContext(c *gin.Context) *Credential {
	credAny, _ := c.Get(credentialContextKey)
	cred, _ := credAny.(*Credential)
	return cred
}

func redirectToLogin(c *gin.Context) {
	if wantsJSON(c) {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
		return
	}
	c.Redirect(http.StatusSeeOther, "/vendor/login")
}

func wantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	accept := c.GetHeader("Accept")
	return accept == "application/json"
}
