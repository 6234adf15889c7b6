package core

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpsKeyRequired gates the operational endpoints behind a shared key passed
// in the X-Ops-Key header. With no key configured the endpoints are disabled
// outright rather than left open.
func OpsKeyRequired(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.OpsKey == "" {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "not found")
			c.Abort()
			return
		}
		provided := c.GetHeader("X-Ops-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.OpsKey)) != 1 {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "ops key required")
			c.Abort()
			return
		}
		c.Next()
	}
}
