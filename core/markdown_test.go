package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	t.Run("renders basic markdown", func(t *testing.T) {
		out := string(RenderMarkdown("# Heading\n\nSome **bold** text."))
		assert.Contains(t, out, "<h1>Heading</h1>")
		assert.Contains(t, out, "<strong>bold</strong>")
	})

	t.Run("renders GFM tables", func(t *testing.T) {
		out := string(RenderMarkdown("| Room | Boxes |\n|---|---|\n| Kitchen | 12 |\n"))
		assert.Contains(t, out, "<table>")
		assert.Contains(t, out, "Kitchen")
	})

	t.Run("strips script tags", func(t *testing.T) {
		out := string(RenderMarkdown("hello <script>alert('x')</script> world"))
		assert.NotContains(t, out, "<script>")
		assert.NotContains(t, out, "alert")
		assert.Contains(t, out, "hello")
	})

	t.Run("strips event handler attributes", func(t *testing.T) {
		out := string(RenderMarkdown(`<a href="https://example.com" onclick="steal()">link</a>`))
		assert.NotContains(t, out, "onclick")
		assert.Contains(t, out, "link")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, string(RenderMarkdown("")))
	})
}
