package core

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5"
)

// quoteRequest is the public quote form. Accepted as a browser form post or
// as JSON from scripted pages.
type quoteRequest struct {
	FullName    string `form:"full_name" json:"full_name"`
	Email       string `form:"email" json:"email"`
	Phone       string `form:"phone" json:"phone"`
	MoveDate    string `form:"move_date" json:"move_date"`
	FromAddress string `form:"from_address" json:"from_address"`
	ToAddress   string `form:"to_address" json:"to_address"`
	HomeSize    string `form:"home_size" json:"home_size"`
	Notes       string `form:"notes" json:"notes"`
}

func (q quoteRequest) validate() string {
	switch {
	case strings.TrimSpace(q.FullName) == "":
		return "Please tell us your name"
	case strings.TrimSpace(q.Email) == "" || !strings.Contains(q.Email, "@"):
		return "A valid email address is required"
	case strings.TrimSpace(q.MoveDate) == "":
		return "Please pick a move date"
	case strings.TrimSpace(q.FromAddress) == "" || strings.TrimSpace(q.ToAddress) == "":
		return "Both the origin and destination of your move are required"
	default:
		return ""
	}
}

// NewRouter constructs the Gin engine with routes wired. Collaborators come
// in as interfaces so handler tests can run without postgres or redis.
func NewRouter(cfg Config, store *sessions.CookieStore, creds CredentialStore, vendor VendorAPIClient, articles ArticleRepository, leads LeadRepository, queue RedisClient, metrics *MetricsService) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()
	r.SetHTMLTemplate(LoadTemplates())

	// Global middleware: origin/CORS -> session -> CSRF
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store))
	r.Use(CSRFMiddleware(cfg, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Marketing pages
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "home", pageData(c, "Compare moving quotes", gin.H{"Form": quoteRequest{}}))
	})
	r.GET("/privacy-policy", staticPage("privacy", "Privacy Policy"))
	r.GET("/terms-of-service", staticPage("terms", "Terms of Service"))
	r.GET("/accessibility-statement", staticPage("accessibility", "Accessibility Statement"))
	r.GET("/cookie-policy", staticPage("cookies", "Cookie Policy"))

	// Tips & guides content hub
	r.GET("/tips-and-guides", func(c *gin.Context) {
		page := 1
		if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
			page = v
		}
		const perPage = 12
		items, total, err := articles.ListPublished(c.Request.Context(), page, perPage)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "guides_list", pageData(c, "Tips & Guides", gin.H{
				"Articles": nil, "Page": 1, "TotalPages": 1,
			}))
			return
		}
		totalPages := (total + perPage - 1) / perPage
		if totalPages < 1 {
			totalPages = 1
		}
		c.HTML(http.StatusOK, "guides_list", pageData(c, "Tips & Guides", gin.H{
			"Articles":   items,
			"Page":       page,
			"TotalPages": totalPages,
			"PrevPage":   page - 1,
			"NextPage":   page + 1,
		}))
	})

	r.GET("/tips-and-guides/:slug", func(c *gin.Context) {
		article, err := articles.GetBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil || article == nil || !article.Published {
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				c.HTML(http.StatusInternalServerError, "notfound", pageData(c, "Something went wrong", gin.H{}))
				return
			}
			c.HTML(http.StatusNotFound, "notfound", pageData(c, "Page not found", gin.H{}))
			return
		}
		c.HTML(http.StatusOK, "guide", pageData(c, article.Title, gin.H{
			"Article": article,
			"Body":    RenderMarkdown(article.BodyMD),
		}))
	})

	// Quote intake: store the lead, then queue it for delivery.
	r.POST("/api/v1/quotes", func(c *gin.Context) {
		var req quoteRequest
		if err := c.ShouldBind(&req); err != nil {
			quoteError(c, req, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			quoteError(c, req, msg)
			return
		}

		ctx := c.Request.Context()
		lead := Lead{
			Reference:   uuid.NewString(),
			FullName:    strings.TrimSpace(req.FullName),
			Email:       strings.TrimSpace(req.Email),
			Phone:       strings.TrimSpace(req.Phone),
			MoveDate:    strings.TrimSpace(req.MoveDate),
			FromAddress: strings.TrimSpace(req.FromAddress),
			ToAddress:   strings.TrimSpace(req.ToAddress),
			HomeSize:    strings.TrimSpace(req.HomeSize),
			Notes:       strings.TrimSpace(req.Notes),
		}
		id, _, err := leads.Create(ctx, lead)
		if err != nil {
			quoteError(c, req, "We could not save your request. Please try again.")
			return
		}
		if err := queue.Enqueue(ctx, PendingQueueKey, strconv.FormatInt(id, 10)); err != nil {
			// The lead is stored; delivery will pick it up when an operator
			// requeues. Do not fail the visitor.
			_ = leads.MarkStatus(ctx, id, "pending")
		}

		if wantsJSON(c) || c.ContentType() == "application/json" {
			c.JSON(http.StatusCreated, gin.H{"reference": lead.Reference, "status": "pending"})
			return
		}
		c.HTML(http.StatusCreated, "quote_thanks", pageData(c, "Request received", gin.H{
			"Name":      lead.FullName,
			"Reference": lead.Reference,
		}))
	})

	// Vendor portal
	portal := NewPortalHandlers(cfg, creds, vendor)
	r.GET("/vendor/login", portal.LoginPage)
	r.POST("/vendor/login", portal.Login)
	r.POST("/vendor/logout", portal.Logout)

	authed := r.Group("/vendor", RequireVendor(creds))
	{
		authed.GET("/portal", portal.Portal)
		authed.POST("/portal/profile", RequirePermission(PermManageProfile), portal.UpdateProfile)
		authed.POST("/portal/password", RequirePermission(PermManageProfile), portal.ChangePassword)
	}

	// Operational endpoints, shared-key gated.
	ops := r.Group("/api/v1/ops", OpsKeyRequired(cfg))
	{
		ops.GET("/status", func(c *gin.Context) {
			st, err := CollectSystemStatus(c.Request.Context(), metrics, leads, startedAt)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to collect status")
				return
			}
			c.JSON(http.StatusOK, st)
		})
		ops.GET("/workers", func(c *gin.Context) {
			workers, err := metrics.Workers(c.Request.Context())
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list workers")
				return
			}
			c.JSON(http.StatusOK, gin.H{"workers": workers})
		})
		ops.GET("/workers/:id", func(c *gin.Context) {
			hb, err := metrics.WorkerByID(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "worker not found")
				return
			}
			c.JSON(http.StatusOK, hb)
		})
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "not found")
			return
		}
		c.HTML(http.StatusNotFound, "notfound", pageData(c, "Page not found", gin.H{}))
	})

	return r
}

func staticPage(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, pageData(c, title, gin.H{}))
	}
}

func quoteError(c *gin.Context, req quoteRequest, msg string) {
	if wantsJSON(c) || c.ContentType() == "application/json" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}
	c.HTML(http.StatusBadRequest, "home", pageData(c, "Compare moving quotes", gin.H{
		"QuoteError": msg,
		"Form":       req,
	}))
}
