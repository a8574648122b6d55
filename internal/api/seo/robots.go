package seo

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// RobotsHandler robots.txt
type RobotsHandler struct {
	body []byte
}

// NewRobotsHandler robots.txt allowing the public pages and pointing at the sitemap
func NewRobotsHandler(baseURL string) *RobotsHandler {
	return &RobotsHandler{
		body: []byte(fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /api/mgt/\n\nSitemap: %s/sitemap.xml\n", baseURL)),
	}
}

// Get GET /robots.txt
func (h *RobotsHandler) Get(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(200, "text/plain; charset=utf-8", h.body)
}
