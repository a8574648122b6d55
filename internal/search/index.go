// Package search holds the pluggable full-text index behind the forum.
//
// The index is a derived projection of the content store. It is written after
// the store commits and may lag behind or miss documents; callers must treat
// every error as non-fatal.
package search

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Kind document kind
type Kind string

const (
	KindThread Kind = "thread"
	KindReply  Kind = "reply"
)

// Document searchable projection of a thread or reply
type Document struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Hit single search match
type Hit struct {
	ID       string
	ThreadID string
	Score    float64
}

// Index text search capability
type Index interface {
	// Name engine name, reported on the runtime endpoint
	Name() string
	// Index add or replace a document
	Index(ctx context.Context, doc Document) error
	// Remove delete a document; removing an unknown id is not an error
	Remove(ctx context.Context, id string) error
	// Search best matches first, at most limit hits
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Close() error
}

// ThreadDocID document id of a thread's title and body
func ThreadDocID(threadPublicID string) string {
	return "thread:" + threadPublicID
}

// ReplyDocID document id of a reply
func ReplyDocID(threadPublicID, replyPublicID string) string {
	return "reply:" + threadPublicID + ":" + replyPublicID
}

// ThreadOfDocID thread public id a document id belongs to; unknown forms are returned as is
func ThreadOfDocID(id string) string {
	switch {
	case strings.HasPrefix(id, "thread:"):
		return strings.TrimPrefix(id, "thread:")
	case strings.HasPrefix(id, "reply:"):
		rest := strings.TrimPrefix(id, "reply:")
		if i := strings.LastIndexByte(rest, ':'); i > 0 {
			return rest[:i]
		}
		return rest
	}
	return id
}

const (
	minTermLen = 2
	maxTermLen = 64
)

// Tokenize lowercase terms made of letters and digits, in text order.
// Repeated terms are kept so callers can weight by frequency.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		n := len([]rune(f))
		if n < minTermLen || n > maxTermLen {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// documentText title and text joined for indexing
func documentText(doc Document) string {
	if doc.Title == "" {
		return doc.Text
	}
	return doc.Title + "\n" + doc.Text
}
