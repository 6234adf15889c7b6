package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// VendorAPIClient abstracts the vendor platform REST API. The portal never
// verifies credentials itself; everything goes through this collaborator.
type VendorAPIClient interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Profile(ctx context.Context, token string) (*VendorProfile, error)
	UpdateProfile(ctx context.Context, token string, input ProfileUpdate) (*VendorProfile, error)
	ChangePassword(ctx context.Context, token, current, updated string) error
	Analytics(ctx context.Context, token string) (*DashboardStats, error)
	SubmitLead(ctx context.Context, lead LeadPayload) error
}

// LoginResult is the body of a successful POST /vendor/login.
type LoginResult struct {
	AccessToken string   `json:"access_token"`
	VendorID    string   `json:"vendor_id"`
	VendorName  string   `json:"vendor_name"`
	Permissions []string `json:"permissions"`
}

// VendorProfile is the vendor-editable account record.
type VendorProfile struct {
	VendorID     string `json:"vendor_id"`
	CompanyName  string `json:"company_name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Website      string `json:"website"`
	Description  string `json:"description"`
}

// ProfileUpdate carries the editable subset for PUT /vendor/profile.
type ProfileUpdate struct {
	CompanyName  string `json:"company_name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Website      string `json:"website"`
	Description  string `json:"description"`
}

// DashboardStats is the read-only analytics object shown on the dashboard.
type DashboardStats struct {
	TotalLeads     int64   `json:"total_leads"`
	LeadsThisMonth int64   `json:"leads_this_month"`
	QuotesSent     int64   `json:"quotes_sent"`
	ConversionRate float64 `json:"conversion_rate"`
}

// LeadPayload is what the delivery worker posts to POST /leads.
type LeadPayload struct {
	Reference   string `json:"reference"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	MoveDate    string `json:"move_date"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	HomeSize    string `json:"home_size,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// APIError is a non-2xx response from the vendor platform. Detail carries the
// body's "detail" field when present; transport failures are plain errors,
// never an APIError, so callers can tell the two apart.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("vendor api returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("vendor api returned status %d", e.StatusCode)
}

// IsAuthError reports whether err is an upstream 401.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// HTTPVendorAPIClient calls the vendor platform over HTTP with bearer auth.
type HTTPVendorAPIClient struct {
	client *http.Client
	base   string
}

func NewHTTPVendorAPIClient(baseURL string) *HTTPVendorAPIClient {
	return &HTTPVendorAPIClient{
		client: &http.Client{Timeout: 30 * time.Second},
		base:   baseURL,
	}
}

func (c *HTTPVendorAPIClient) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var out LoginResult
	if err := c.call(ctx, http.MethodPost, "/vendor/login", "", body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.VendorID == "" {
		return nil, errors.New("login response missing access_token or vendor_id")
	}
	return &out, nil
}

func (c *HTTPVendorAPIClient) Profile(ctx context.Context, token string) (*VendorProfile, error) {
	var out VendorProfile
	if err := c.call(ctx, http.MethodGet, "/vendor/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPVendorAPIClient) UpdateProfile(ctx context.Context, token string, input ProfileUpdate) (*VendorProfile, error) {
	var out VendorProfile
	if err := c.call(ctx, http.MethodPut, "/vendor/profile", token, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPVendorAPIClient) ChangePassword(ctx context.Context, token, current, updated string) error {
	body := map[string]string{"current_password": current, "new_password": updated}
	return c.call(ctx, http.MethodPost, "/vendor/change-password", token, body, nil)
}

func (c *HTTPVendorAPIClient) Analytics(ctx context.Context, token string) (*DashboardStats, error) {
	var out DashboardStats
	if err := c.call(ctx, http.MethodGet, "/vendor/analytics", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPVendorAPIClient) SubmitLead(ctx context.Context, lead LeadPayload) error {
	return c.call(ctx, http.MethodPost, "/leads", "", lead, nil)
}

// call performs one fire-once request. No retries, no redirect on 401; the
// caller decides what an auth failure means.
func (c *HTTPVendorAPIClient) call(ctx context.Context, method, path, token string, body, out interface{}) error {
	if c.base == "" {
		return errors.New("vendor api url not configured")
	}

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("vendor api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: decodeDetail(resp)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode vendor api response: %w", err)
	}
	return nil
}

// decodeDetail best-effort extracts {"detail": "..."} from an error body.
// Returns empty when the body is not parseable or lacks the field.
func decodeDetail(resp *http.Response) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}
