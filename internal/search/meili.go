package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"forum_go/internal/core/config"
)

// Meilisearch defaults
const (
	DefaultMeiliURL     = "http://localhost:7700"
	DefaultMeiliIndex   = "forum"
	DefaultMeiliTimeout = 5 * time.Second
)

// MeiliIndex Index backed by a Meilisearch server over its REST API
type MeiliIndex struct {
	client  *http.Client
	baseURL string
	apiKey  string
	uid     string
	limiter *rate.Limiter
}

var _ Index = (*MeiliIndex)(nil)

// meiliDocument stored form; Meilisearch ids only allow [A-Za-z0-9_-]
type meiliDocument struct {
	Key       string `json:"key"`
	DocID     string `json:"doc_id"`
	ThreadID  string `json:"thread_id"`
	Kind      Kind   `json:"kind"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

type meiliSearchRequest struct {
	Q                    string   `json:"q"`
	Limit                int      `json:"limit"`
	ShowRankingScore     bool     `json:"showRankingScore"`
	AttributesToRetrieve []string `json:"attributesToRetrieve"`
}

type meiliSearchResponse struct {
	Hits []struct {
		DocID        string  `json:"doc_id"`
		ThreadID     string  `json:"thread_id"`
		RankingScore float64 `json:"_rankingScore"`
	} `json:"hits"`
}

// NewMeiliIndex create a Meilisearch client
func NewMeiliIndex(cfg config.MeiliConfig) (*MeiliIndex, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultMeiliURL
	}
	if cfg.Index == "" {
		cfg.Index = DefaultMeiliIndex
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMeiliTimeout
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid meilisearch url: %w", err)
	}

	idx := &MeiliIndex{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		uid:     cfg.Index,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		idx.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return idx, nil
}

// Name engine name
func (m *MeiliIndex) Name() string { return EngineMeilisearch }

// Index add or replace a document
func (m *MeiliIndex) Index(ctx context.Context, doc Document) error {
	body := []meiliDocument{{
		Key:       meiliKey(doc.ID),
		DocID:     doc.ID,
		ThreadID:  doc.ThreadID,
		Kind:      doc.Kind,
		Title:     doc.Title,
		Text:      doc.Text,
		CreatedAt: doc.CreatedAt.Unix(),
	}}
	return m.do(ctx, http.MethodPost, m.indexPath("/documents?primaryKey=key"), body, nil)
}

// Remove delete a document by id
func (m *MeiliIndex) Remove(ctx context.Context, id string) error {
	return m.do(ctx, http.MethodDelete, m.indexPath("/documents/"+url.PathEscape(meiliKey(id))), nil, nil)
}

// Search ranked by Meilisearch relevance
func (m *MeiliIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	req := meiliSearchRequest{
		Q:                    query,
		Limit:                limit,
		ShowRankingScore:     true,
		AttributesToRetrieve: []string{"doc_id", "thread_id"},
	}
	var resp meiliSearchResponse
	if err := m.do(ctx, http.MethodPost, m.indexPath("/search"), req, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, Hit{ID: h.DocID, ThreadID: h.ThreadID, Score: h.RankingScore})
	}
	return hits, nil
}

// Close releases resources.
func (m *MeiliIndex) Close() error {
	m.client.CloseIdleConnections()
	return nil
}

func (m *MeiliIndex) indexPath(suffix string) string {
	return m.baseURL + "/indexes/" + url.PathEscape(m.uid) + suffix
}

func (m *MeiliIndex) do(ctx context.Context, method, target string, in, out interface{}) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("meilisearch: rate limit: %w", err)
		}
	}

	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("meilisearch: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("meilisearch: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("meilisearch: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("meilisearch error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("meilisearch: decode response: %w", err)
	}
	return nil
}

// meiliKey map a document id onto the Meilisearch id alphabet
func meiliKey(id string) string {
	return strings.ReplaceAll(id, ":", "_")
}
