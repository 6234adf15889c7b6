package core

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgLoginFailed    = "Login failed"
	msgNetworkError   = "Network error. Please try again."
	msgLoadProfile    = "Failed to load profile"
	msgUpdateProfile  = "Failed to update profile"
	msgChangePassword = "Failed to change password"
	msgLoadAnalytics  = "Failed to load analytics"
)

// PortalHandlers serves the vendor portal: login, the dashboard shell, and
// the profile mutations. All vendor data lives upstream; these handlers only
// hold the session credential and proxy calls.
type PortalHandlers struct {
	cfg    Config
	creds  CredentialStore
	vendor VendorAPIClient
}

func NewPortalHandlers(cfg Config, creds CredentialStore, vendor VendorAPIClient) *PortalHandlers {
	return &PortalHandlers{cfg: cfg, creds: creds, vendor: vendor}
}

// LoginPage renders the sign-in form. An already-authenticated vendor goes
// straight to the portal.
func (h *PortalHandlers) LoginPage(c *gin.Context) {
	if cred, err := h.creds.Get(c); err == nil && cred != nil {
		c.Redirect(http.StatusSeeOther, "/vendor/portal")
		return
	}
	c.HTML(http.StatusOK, "vendor_login", pageData(c, "Vendor sign in", gin.H{}))
}

// Login authenticates against the vendor platform and persists the
// credential. Nothing is stored on any failure path.
func (h *PortalHandlers) Login(c *gin.Context) {
	var req struct {
		Username string `form:"username" json:"username"`
		Password string `form:"password" json:"password"`
	}
	if err := c.ShouldBind(&req); err != nil || req.Username == "" || req.Password == "" {
		h.renderLogin(c, http.StatusBadRequest, req.Username, "Username and password are required")
		return
	}

	result, err := h.vendor.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Detail != "":
			h.renderLogin(c, http.StatusUnauthorized, req.Username, apiErr.Detail)
		case errors.As(err, &apiErr):
			h.renderLogin(c, http.StatusUnauthorized, req.Username, msgLoginFailed)
		default:
			h.renderLogin(c, http.StatusBadGateway, req.Username, msgNetworkError)
		}
		return
	}

	cred := Credential{
		Token:       result.AccessToken,
		VendorID:    result.VendorID,
		VendorName:  result.VendorName,
		Permissions: result.Permissions,
	}
	if err := h.creds.Set(c, cred); err != nil {
		log.Printf("failed to persist credential for vendor %s: %v", result.VendorID, err)
		h.renderLogin(c, http.StatusInternalServerError, req.Username, msgLoginFailed)
		return
	}

	c.Redirect(http.StatusSeeOther, "/vendor/portal")
}

// Logout clears the credential and returns to the login page. Idempotent:
// logging out while logged out is a no-op.
func (h *PortalHandlers) Logout(c *gin.Context) {
	if err := h.creds.Clear(c); err != nil {
		log.Printf("failed to clear credential: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/vendor/login")
}

// Portal renders the dashboard shell: the permission-filtered sidebar plus
// exactly one panel chosen by the section parameter (unknown values fall
// back to the dashboard).
func (h *PortalHandlers) Portal(c *gin.Context) {
	cred := CredentialFromContext(c)
	if cred == nil {
		redirectToLogin(c)
		return
	}

	section := NormalizeSection(c.Query("section"), cred.Permissions)
	data := gin.H{
		"Cred":         cred,
		"Nav":          VisibleNavigation(cred.Permissions),
		"Active":       string(section),
		"CanViewLeads": HasPermission(cred.Permissions, PermViewLeads),
	}

	switch section {
	case SectionDashboard, SectionAnalytics:
		stats, err := h.vendor.Analytics(c.Request.Context(), cred.Token)
		if err != nil {
			if h.expireSession(c, err) {
				return
			}
			data["StatsError"] = upstreamMessage(err, msgLoadAnalytics)
		} else {
			data["Stats"] = stats
		}
	case SectionProfile:
		data["Tab"] = c.Query("tab")
		data["ProfileSaved"] = c.Query("saved") == "1"
		data["PasswordSaved"] = c.Query("password_changed") == "1"
		profile, err := h.vendor.Profile(c.Request.Context(), cred.Token)
		if err != nil {
			if h.expireSession(c, err) {
				return
			}
			data["ProfileError"] = upstreamMessage(err, msgLoadProfile)
		} else {
			data["Profile"] = profile
		}
	}

	c.HTML(http.StatusOK, "vendor_portal", pageData(c, "Vendor portal", data))
}

// UpdateProfile proxies the profile form to the platform. On failure the
// panel re-renders with the submitted values intact and an inline message.
func (h *PortalHandlers) UpdateProfile(c *gin.Context) {
	cred := CredentialFromContext(c)
	if cred == nil {
		redirectToLogin(c)
		return
	}

	input := ProfileUpdate{
		CompanyName:  c.PostForm("company_name"),
		ContactName:  c.PostForm("contact_name"),
		ContactEmail: c.PostForm("contact_email"),
		Phone:        c.PostForm("phone"),
		Website:      c.PostForm("website"),
		Description:  c.PostForm("description"),
	}

	if _, err := h.vendor.UpdateProfile(c.Request.Context(), cred.Token, input); err != nil {
		if h.expireSession(c, err) {
			return
		}
		data := gin.H{
			"Cred":         cred,
			"Nav":          VisibleNavigation(cred.Permissions),
			"Active":       string(SectionProfile),
			"CanViewLeads": HasPermission(cred.Permissions, PermViewLeads),
			"Profile": &VendorProfile{
				VendorID:     cred.VendorID,
				CompanyName:  input.CompanyName,
				ContactName:  input.ContactName,
				ContactEmail: input.ContactEmail,
				Phone:        input.Phone,
				Website:      input.Website,
				Description:  input.Description,
			},
			"ProfileError": upstreamMessage(err, msgUpdateProfile),
		}
		c.HTML(http.StatusOK, "vendor_portal", pageData(c, "Vendor portal", data))
		return
	}

	c.Redirect(http.StatusSeeOther, "/vendor/portal?section=profile&saved=1")
}

// ChangePassword proxies the password form to the platform.
func (h *PortalHandlers) ChangePassword(c *gin.Context) {
	cred := CredentialFromContext(c)
	if cred == nil {
		redirectToLogin(c)
		return
	}

	current := c.PostForm("current_password")
	updated := c.PostForm("new_password")
	if current == "" || updated == "" {
		h.renderPasswordTab(c, cred, "Both password fields are required")
		return
	}

	if err := h.vendor.ChangePassword(c.Request.Context(), cred.Token, current, updated); err != nil {
		if h.expireSession(c, err) {
			return
		}
		h.renderPasswordTab(c, cred, upstreamMessage(err, msgChangePassword))
		return
	}

	c.Redirect(http.StatusSeeOther, "/vendor/portal?section=profile&tab=password&password_changed=1")
}

func (h *PortalHandlers) renderLogin(c *gin.Context, status int, username, message string) {
	c.HTML(status, "vendor_login", pageData(c, "Vendor sign in", gin.H{
		"Error":    message,
		"Username": username,
	}))
}

func (h *PortalHandlers) renderPasswordTab(c *gin.Context, cred *Credential, message string) {
	data := gin.H{
		"Cred":          cred,
		"Nav":           VisibleNavigation(cred.Permissions),
		"Active":        string(SectionProfile),
		"CanViewLeads":  HasPermission(cred.Permissions, PermViewLeads),
		"Tab":           "password",
		"PasswordError": message,
	}
	c.HTML(http.StatusOK, "vendor_portal", pageData(c, "Vendor portal", data))
}

// expireSession handles an upstream 401 on a protected call: the token is
// dead server-side, so the stored credential is cleared and the browser is
// sent back to the login page. Returns true when it consumed the error.
func (h *PortalHandlers) expireSession(c *gin.Context, err error) bool {
	if !IsAuthError(err) {
		return false
	}
	_ = h.creds.Clear(c)
	redirectToLogin(c)
	return true
}

// upstreamMessage converts a vendor platform error to a user-facing message:
// the body's detail when present, a per-operation fallback for other HTTP
// errors, and a generic network message for transport failures.
func upstreamMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fallback
	}
	return msgNetworkError
}
