// Package render turns stored markdown into sanitized HTML.
package render

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer markdown to safe HTML. Safe for concurrent use; output is a pure function of the input.
type Renderer struct {
	md      goldmark.Markdown
	content *bluemonday.Policy
	title   *bluemonday.Policy
}

// New create a Renderer with GitHub flavoured markdown and a user-content sanitizer
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		// raw HTML passes through goldmark and is cleaned by the policy below
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	content := bluemonday.UGCPolicy()
	content.RequireNoFollowOnLinks(true)
	content.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		md:      md,
		content: content,
		title:   bluemonday.StrictPolicy(),
	}
}

// Markdown render content and sanitize the result
func (r *Renderer) Markdown(content string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		// goldmark only fails on writer errors; fall back to escaped text
		return r.title.Sanitize(content)
	}
	return strings.TrimSpace(r.content.Sanitize(buf.String()))
}

// Title strip any markup from a title
func (r *Renderer) Title(title string) string {
	return r.title.Sanitize(title)
}

var (
	defaultOnce     sync.Once
	defaultRenderer *Renderer
)

// Default shared process renderer
func Default() *Renderer {
	defaultOnce.Do(func() {
		defaultRenderer = New()
	})
	return defaultRenderer
}
