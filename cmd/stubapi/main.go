// Command stubapi is a local stand-in for the vendor platform API. It lets
// the web server and delivery worker run end to end in development without
// access to the real platform. Not for production use.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"movedin-web/core"
)

type vendorAccount struct {
	mu           sync.Mutex
	username     string
	passwordHash []byte
	profile      core.VendorProfile
	permissions  []string
	tokens       map[string]bool
	leads        []core.LeadPayload
	leadsMonth   int64
	quotesSent   int64
}

func main() {
	password := os.Getenv("STUB_VENDOR_PASSWORD")
	generated := false
	if password == "" {
		password = randomToken(16)
		generated = true
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	acct := &vendorAccount{
		username:     "acme-movers",
		passwordHash: hash,
		profile: core.VendorProfile{
			VendorID:     "vnd_0001",
			CompanyName:  "Acme Movers",
			ContactName:  "Pat Mover",
			ContactEmail: "pat@acmemovers.example",
			Phone:        "555-0100",
		},
		permissions: []string{core.PermViewLeads, core.PermViewAnalytics, core.PermManageProfile},
		tokens:      map[string]bool{},
	}
	if generated {
		log.Printf("stub vendor account username=%s password=%s", acct.username, password)
	}

	r := gin.Default()

	r.POST("/vendor/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
			return
		}
		acct.mu.Lock()
		defer acct.mu.Unlock()
		if req.Username != acct.username ||
			bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
			return
		}
		token := randomToken(32)
		acct.tokens[token] = true
		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"vendor_id":    acct.profile.VendorID,
			"vendor_name":  acct.profile.CompanyName,
			"permissions":  acct.permissions,
		})
	})

	authed := r.Group("/", func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		acct.mu.Lock()
		ok := token != "" && acct.tokens[token]
		acct.mu.Unlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired token"})
			return
		}
	})

	authed.GET("/vendor/profile", func(c *gin.Context) {
		acct.mu.Lock()
		defer acct.mu.Unlock()
		c.JSON(http.StatusOK, acct.profile)
	})

	authed.PUT("/vendor/profile", func(c *gin.Context) {
		var input core.ProfileUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
			return
		}
		if input.ContactEmail != "" && !strings.Contains(input.ContactEmail, "@") {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "contact_email is not a valid email address"})
			return
		}
		acct.mu.Lock()
		defer acct.mu.Unlock()
		acct.profile.CompanyName = input.CompanyName
		acct.profile.ContactName = input.ContactName
		acct.profile.ContactEmail = input.ContactEmail
		acct.profile.Phone = input.Phone
		acct.profile.Website = input.Website
		acct.profile.Description = input.Description
		c.JSON(http.StatusOK, acct.profile)
	})

	authed.POST("/vendor/change-password", func(c *gin.Context) {
		var req struct {
			Current string `json:"current_password"`
			New     string `json:"new_password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
			return
		}
		if len(req.New) < 8 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "New password must be at least 8 characters"})
			return
		}
		acct.mu.Lock()
		defer acct.mu.Unlock()
		if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Current)) != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Current password is incorrect"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to update password"})
			return
		}
		acct.passwordHash = hash
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed.GET("/vendor/analytics", func(c *gin.Context) {
		acct.mu.Lock()
		defer acct.mu.Unlock()
		total := int64(len(acct.leads))
		rate := 0.0
		if total > 0 {
			rate = float64(acct.quotesSent) / float64(total) * 100
		}
		c.JSON(http.StatusOK, core.DashboardStats{
			TotalLeads:     total,
			LeadsThisMonth: acct.leadsMonth,
			QuotesSent:     acct.quotesSent,
			ConversionRate: rate,
		})
	})

	// Lead intake is unauthenticated here; the real platform uses a partner
	// key that never reaches this repo.
	r.POST("/leads", func(c *gin.Context) {
		var lead core.LeadPayload
		if err := c.ShouldBindJSON(&lead); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
			return
		}
		if lead.Reference == "" || lead.Email == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "reference and email are required"})
			return
		}
		acct.mu.Lock()
		defer acct.mu.Unlock()
		acct.leads = append(acct.leads, lead)
		acct.leadsMonth++
		c.JSON(http.StatusCreated, gin.H{"status": "accepted", "reference": lead.Reference})
	})

	port := os.Getenv("STUB_API_PORT")
	if port == "" {
		port = "8000"
	}
	log.Printf("stub vendor api listening on :%s", port)
	if err := r.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func randomToken(length int) string {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		log.Fatalf("read random: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length]
}
