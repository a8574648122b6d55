package repository

import (
	"context"
	"database/sql"
	"errors"

	"forum_go/internal/core/snowflake"
	"forum_go/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const replyColumns = "id, public_id, thread_id, created_by, content, created_at, modified_at"

// ReplyRepository Reply data access interface
type ReplyRepository interface {
	Create(ctx context.Context, threadID, authorID int64, content string) (*model.Reply, error)
	GetByPublicID(ctx context.Context, publicID string) (*model.Reply, error)
	GetFirst(ctx context.Context, threadID int64) (*model.Reply, error)
	ListByThread(ctx context.Context, threadID int64) ([]*model.Reply, error)
	CountByThread(ctx context.Context, threadID int64) (int, error)
	CountByThreads(ctx context.Context, threadIDs []int64) (map[int64]int, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error
	DeleteByThread(ctx context.Context, threadID int64) error
}

// replyRepository Reply data access implementation
type replyRepository struct {
	db *sqlx.DB
}

// NewReplyRepository create ReplyRepository instance
func NewReplyRepository(db *sqlx.DB) ReplyRepository {
	return &replyRepository{db: db}
}

// Create append a reply; ErrNotFound when the thread no longer exists
func (r *replyRepository) Create(ctx context.Context, threadID, authorID int64, content string) (*model.Reply, error) {
	ts := now()
	reply := &model.Reply{
		ID:         snowflake.Generate(),
		PublicID:   uuid.NewString(),
		ThreadID:   threadID,
		CreatedBy:  authorID,
		Content:    content,
		CreatedAt:  ts,
		ModifiedAt: ts,
	}

	query := r.db.Rebind(`
		INSERT INTO replies (id, public_id, thread_id, created_by, content, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		reply.ID, reply.PublicID, reply.ThreadID, reply.CreatedBy, reply.Content, reply.CreatedAt, reply.ModifiedAt)
	if err != nil {
		return nil, mapWriteError("insert reply", err)
	}
	return reply, nil
}

// GetByPublicID get Reply by public id, nil when absent
func (r *replyRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Reply, error) {
	if !validPublicID(publicID) {
		return nil, nil
	}
	var reply model.Reply
	err := r.db.GetContext(ctx, &reply, r.db.Rebind("SELECT "+replyColumns+" FROM replies WHERE public_id = ?"), publicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &reply, nil
}

// GetFirst earliest remaining reply of a thread, nil when it has none
func (r *replyRepository) GetFirst(ctx context.Context, threadID int64) (*model.Reply, error) {
	var reply model.Reply
	err := r.db.GetContext(ctx, &reply, r.db.Rebind(
		"SELECT "+replyColumns+" FROM replies WHERE thread_id = ? ORDER BY created_at ASC, id ASC LIMIT 1"), threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &reply, nil
}

// ListByThread all replies in creation order
func (r *replyRepository) ListByThread(ctx context.Context, threadID int64) ([]*model.Reply, error) {
	var replies []*model.Reply
	err := r.db.SelectContext(ctx, &replies, r.db.Rebind(
		"SELECT "+replyColumns+" FROM replies WHERE thread_id = ? ORDER BY created_at ASC, id ASC"), threadID)
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// CountByThread total replies including the body
func (r *replyRepository) CountByThread(ctx context.Context, threadID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM replies WHERE thread_id = ?"), threadID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByThreads totals per thread; threads without replies are absent from the map
func (r *replyRepository) CountByThreads(ctx context.Context, threadIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(threadIDs))
	if len(threadIDs) == 0 {
		return counts, nil
	}
	query, args, err := sqlx.In("SELECT thread_id, COUNT(*) AS total FROM replies WHERE thread_id IN (?) GROUP BY thread_id", threadIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ThreadID int64 `db:"thread_id"`
		Total    int   `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ThreadID] = row.Total
	}
	return counts, nil
}

// UpdateContent overwrite the markdown source
func (r *replyRepository) UpdateContent(ctx context.Context, id int64, content string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE replies SET content = ?, modified_at = ? WHERE id = ?"), content, now(), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// Delete delete one reply; ErrNotFound when already gone
func (r *replyRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM replies WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// DeleteByThread delete every reply of a thread, no-op when none remain
func (r *replyRepository) DeleteByThread(ctx context.Context, threadID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM replies WHERE thread_id = ?"), threadID)
	return err
}
