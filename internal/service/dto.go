package service

import "time"

// ThreadView thread with derived fields computed at read time
type ThreadView struct {
	PublicID   string    `json:"id"`
	Title      string    `json:"title"`
	Content    *string   `json:"content"` // rendered earliest reply, nil when none remain
	Author     Author    `json:"author"`
	ReplyCount int       `json:"reply_count"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// HasContent whether any reply remains to act as the body
func (v *ThreadView) HasContent() bool {
	return v.Content != nil
}

// ReplyView rendered reply
type ReplyView struct {
	PublicID   string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Author     Author    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ThreadSummary list entry
type ThreadSummary struct {
	PublicID   string    `json:"id"`
	Title      string    `json:"title"`
	Author     Author    `json:"author"`
	ReplyCount int       `json:"reply_count"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ThreadPage one page of threads, newest first
type ThreadPage struct {
	Items    []ThreadSummary `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// SearchResult ranked thread match
type SearchResult struct {
	PublicID  string    `json:"id"`
	Title     string    `json:"title"`
	Author    Author    `json:"author"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// TagView tag and usage
type TagView struct {
	Name    string `json:"name"`
	Threads int    `json:"threads"`
}

// CreateThreadInput new thread with its body
type CreateThreadInput struct {
	Title    string   `validate:"required,max=100"`
	Content  string   `validate:"required"`
	Tags     []string `validate:"dive,required,max=25"`
	AuthorID int64    `validate:"required"`
}

// UpdateThreadInput nil fields are left unchanged; Tags replaces the whole set
type UpdateThreadInput struct {
	Title   *string
	Content *string
	Tags    *[]string
}
