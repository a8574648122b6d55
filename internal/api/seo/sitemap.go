package seo

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"forum_go/internal/core/logger"
	"forum_go/internal/repository"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// SitemapConfig sitemap settings
type SitemapConfig struct {
	BaseURL  string
	CacheTTL time.Duration // index cache lifetime
	MaxURLs  int           // URLs per shard
}

// SitemapService sitemap index and per-shard thread sitemaps
type SitemapService struct {
	repo       repository.ThreadRepository
	config     *SitemapConfig
	cache      []byte
	cacheMu    sync.RWMutex
	lastModify time.Time
}

// NewSitemapService create SitemapService
func NewSitemapService(threadRepo repository.ThreadRepository, cfg *SitemapConfig) *SitemapService {
	if cfg.MaxURLs <= 0 || cfg.MaxURLs > 50000 {
		cfg.MaxURLs = 50000
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &SitemapService{
		repo:   threadRepo,
		config: cfg,
	}
}

type sitemapIndex struct {
	XMLName  xml.Name   `xml:"sitemapindex"`
	XMLNS    string     `xml:"xmlns,attr"`
	Sitemaps []urlEntry `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

// urlEntry sitemap entry
type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// GetIndex sitemap index listing every thread shard
func (s *SitemapService) GetIndex(ctx context.Context) ([]byte, error) {
	s.cacheMu.RLock()
	if s.cache != nil && time.Since(s.lastModify) < s.config.CacheTTL {
		defer s.cacheMu.RUnlock()
		return s.cache, nil
	}
	s.cacheMu.RUnlock()

	threadCount, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count threads: %w", err)
	}
	pages := (threadCount + s.config.MaxURLs - 1) / s.config.MaxURLs
	if pages < 1 {
		pages = 1
	}

	today := time.Now().UTC().Format("2006-01-02")
	index := sitemapIndex{XMLNS: sitemapNS, Sitemaps: make([]urlEntry, 0, pages)}
	for i := 1; i <= pages; i++ {
		index.Sitemaps = append(index.Sitemaps, urlEntry{
			Loc:     fmt.Sprintf("%s/sitemap/threads/%d.xml", s.config.BaseURL, i),
			LastMod: today,
		})
	}

	data, err := encode(index)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cache = data
	s.lastModify = time.Now()
	s.cacheMu.Unlock()

	return data, nil
}

// GetThreadSitemap one shard of thread URLs, nil when the page is empty
func (s *SitemapService) GetThreadSitemap(ctx context.Context, page int) ([]byte, error) {
	offset := (page - 1) * s.config.MaxURLs

	threads, err := s.repo.GetSitemapList(ctx, offset, s.config.MaxURLs)
	if err != nil {
		return nil, fmt.Errorf("list sitemap threads: %w", err)
	}
	if len(threads) == 0 {
		return nil, nil
	}

	set := urlSet{XMLNS: sitemapNS, URLs: make([]urlEntry, 0, len(threads))}
	for _, t := range threads {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        fmt.Sprintf("%s/thread/%s", s.config.BaseURL, t.PublicID),
			LastMod:    t.ModifiedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "daily",
			Priority:   "0.8",
		})
	}
	return encode(set)
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Handler sitemap routes
type Handler struct {
	svc *SitemapService
}

// NewHandler create sitemap Handler
func NewHandler(svc *SitemapService) *Handler {
	return &Handler{svc: svc}
}

// SitemapIndex GET /sitemap.xml
func (h *Handler) SitemapIndex(c *gin.Context) {
	data, err := h.svc.GetIndex(c.Request.Context())
	if err != nil {
		logger.Error("build sitemap index", logger.ErrorField(err))
		c.String(500, "internal server error")
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(200, "application/xml", data)
}

// ThreadSitemap GET /sitemap/threads/:page (e.g. 1.xml)
func (h *Handler) ThreadSitemap(c *gin.Context) {
	page, err := strconv.Atoi(strings.TrimSuffix(c.Param("page"), ".xml"))
	if err != nil || page < 1 {
		c.Status(404)
		return
	}

	data, err := h.svc.GetThreadSitemap(c.Request.Context(), page)
	if err != nil {
		logger.Error("build thread sitemap", logger.Int("page", page), logger.ErrorField(err))
		c.String(500, "internal server error")
		return
	}
	if data == nil {
		c.Status(404)
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(200, "application/xml", data)
}
