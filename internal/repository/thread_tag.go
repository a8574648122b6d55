package repository

import (
	"context"
	"fmt"

	"forum_go/internal/model"

	"github.com/jmoiron/sqlx"
)

// ThreadTagRepository ThreadTag data access interface
type ThreadTagRepository interface {
	Create(ctx context.Context, threadID, tagID int64) error
	DeleteByThread(ctx context.Context, threadID int64) error
	ListByThread(ctx context.Context, threadID int64) ([]*model.ThreadTag, error)
}

// threadTagRepository ThreadTag data access implementation
type threadTagRepository struct {
	db *sqlx.DB
}

// NewThreadTagRepository create ThreadTagRepository instance
func NewThreadTagRepository(db *sqlx.DB) ThreadTagRepository {
	return &threadTagRepository{db: db}
}

// Create associate a tag with a thread; an existing pair is left as is
func (r *threadTagRepository) Create(ctx context.Context, threadID, tagID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO thread_tags (thread_id, tag_id, created_at) VALUES (?, ?, ?)"),
		threadID, tagID, now())
	switch {
	case err == nil, isUniqueViolation(err):
		return nil
	case isForeignKeyViolation(err):
		return ErrNotFound
	default:
		return fmt.Errorf("insert thread tag: %w", err)
	}
}

// DeleteByThread drop every association of a thread
func (r *threadTagRepository) DeleteByThread(ctx context.Context, threadID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM thread_tags WHERE thread_id = ?"), threadID)
	return err
}

// ListByThread associations of a thread in attach order
func (r *threadTagRepository) ListByThread(ctx context.Context, threadID int64) ([]*model.ThreadTag, error) {
	var links []*model.ThreadTag
	err := r.db.SelectContext(ctx, &links, r.db.Rebind(
		"SELECT thread_id, tag_id, created_at FROM thread_tags WHERE thread_id = ? ORDER BY created_at ASC, tag_id ASC"), threadID)
	if err != nil {
		return nil, err
	}
	return links, nil
}
