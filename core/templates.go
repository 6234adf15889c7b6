package core

import (
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// LoadTemplates parses the embedded views. Panics on a malformed template;
// that is a build defect, not a runtime condition.
func LoadTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}

// pageData builds the base payload every view expects and merges the
// page-specific fields on top.
func pageData(c *gin.Context, title string, fields gin.H) gin.H {
	data := gin.H{
		"Title": title,
		"Year":  time.Now().Year(),
	}
	if token, ok := c.Get("csrf_token"); ok {
		data["CSRF"] = token
	}
	for k, v := range fields {
		data[k] = v
	}
	return data
}
