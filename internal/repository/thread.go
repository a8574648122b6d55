package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"forum_go/internal/core/snowflake"
	"forum_go/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const threadColumns = "id, public_id, title, created_by, created_at, modified_at"

// ThreadRepository Thread data access interface
type ThreadRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Thread, error)
	GetByPublicID(ctx context.Context, publicID string) (*model.Thread, error)
	GetByTitle(ctx context.Context, title string) (*model.Thread, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.Thread, error)
	GetByPublicIDs(ctx context.Context, publicIDs []string) ([]*model.Thread, error)
	List(ctx context.Context, offset, limit int) ([]*model.Thread, error)
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*model.Thread, error)
	Count(ctx context.Context) (int, error)
	CreateWithBody(ctx context.Context, title string, authorID int64, content string) (*model.Thread, *model.Reply, error)
	UpdateTitle(ctx context.Context, id int64, title string) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	// Sitemap
	GetSitemapList(ctx context.Context, offset, limit int) ([]*model.Thread, error)
}

// threadRepository Thread data access implementation
type threadRepository struct {
	db *sqlx.DB
}

// NewThreadRepository create ThreadRepository instance
func NewThreadRepository(db *sqlx.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// GetByID get Thread by internal id, nil when absent
func (r *threadRepository) GetByID(ctx context.Context, id int64) (*model.Thread, error) {
	return r.getOne(ctx, "SELECT "+threadColumns+" FROM threads WHERE id = ?", id)
}

// GetByPublicID get Thread by public id, nil when absent
func (r *threadRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Thread, error) {
	if !validPublicID(publicID) {
		return nil, nil
	}
	return r.getOne(ctx, "SELECT "+threadColumns+" FROM threads WHERE public_id = ?", publicID)
}

// GetByTitle get Thread by exact title, nil when absent
func (r *threadRepository) GetByTitle(ctx context.Context, title string) (*model.Thread, error) {
	return r.getOne(ctx, "SELECT "+threadColumns+" FROM threads WHERE title = ?", title)
}

// GetByIDs batch get threads, missing ids are skipped
func (r *threadRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.Thread, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+threadColumns+" FROM threads WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var threads []*model.Thread
	if err := r.db.SelectContext(ctx, &threads, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return threads, nil
}

// GetByPublicIDs batch get threads by public id, unknown ids are skipped
func (r *threadRepository) GetByPublicIDs(ctx context.Context, publicIDs []string) ([]*model.Thread, error) {
	valid := make([]string, 0, len(publicIDs))
	for _, id := range publicIDs {
		if validPublicID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+threadColumns+" FROM threads WHERE public_id IN (?)", valid)
	if err != nil {
		return nil, err
	}
	var threads []*model.Thread
	if err := r.db.SelectContext(ctx, &threads, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return threads, nil
}

// List newest-created first
func (r *threadRepository) List(ctx context.Context, offset, limit int) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := r.db.SelectContext(ctx, &threads, r.db.Rebind(
		"SELECT "+threadColumns+" FROM threads ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"),
		limit, offset)
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// ListAfter keyset scan in id order, used to walk every thread
func (r *threadRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := r.db.SelectContext(ctx, &threads, r.db.Rebind(
		"SELECT "+threadColumns+" FROM threads WHERE id > ? ORDER BY id ASC LIMIT ?"),
		afterID, limit)
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// Count total threads
func (r *threadRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM threads"); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateWithBody insert a thread and its first reply in one transaction.
// The title unique key decides concurrent creators: the loser gets ErrConflict.
func (r *threadRepository) CreateWithBody(ctx context.Context, title string, authorID int64, content string) (*model.Thread, *model.Reply, error) {
	ts := now()
	thread := &model.Thread{
		ID:         snowflake.Generate(),
		PublicID:   uuid.NewString(),
		Title:      title,
		CreatedBy:  authorID,
		CreatedAt:  ts,
		ModifiedAt: ts,
	}
	body := &model.Reply{
		ID:         snowflake.Generate(),
		PublicID:   uuid.NewString(),
		ThreadID:   thread.ID,
		CreatedBy:  authorID,
		Content:    content,
		CreatedAt:  ts,
		ModifiedAt: ts,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(
		"INSERT INTO threads (id, public_id, title, created_by, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?)"),
		thread.ID, thread.PublicID, thread.Title, thread.CreatedBy, thread.CreatedAt, thread.ModifiedAt)
	if err != nil {
		return nil, nil, mapWriteError("insert thread", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		"INSERT INTO replies (id, public_id, thread_id, created_by, content, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		body.ID, body.PublicID, body.ThreadID, body.CreatedBy, body.Content, body.CreatedAt, body.ModifiedAt)
	if err != nil {
		return nil, nil, mapWriteError("insert thread body", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, mapWriteError("commit thread", err)
	}
	return thread, body, nil
}

// UpdateTitle rename a thread; ErrConflict when the title is taken
func (r *threadRepository) UpdateTitle(ctx context.Context, id int64, title string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE threads SET title = ?, modified_at = ? WHERE id = ?"), title, now(), id)
	if err != nil {
		return mapWriteError("update thread title", err)
	}
	return expectAffected(res)
}

// Touch bump modified_at
func (r *threadRepository) Touch(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE threads SET modified_at = ? WHERE id = ?"), now(), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// Delete delete the thread row; replies and tag links cascade in the schema
func (r *threadRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM threads WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// GetSitemapList public id and modification time, oldest first
func (r *threadRepository) GetSitemapList(ctx context.Context, offset, limit int) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := r.db.SelectContext(ctx, &threads, r.db.Rebind(
		"SELECT "+threadColumns+" FROM threads ORDER BY id ASC LIMIT ? OFFSET ?"),
		limit, offset)
	if err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.Thread, error) {
	var thread model.Thread
	err := r.db.GetContext(ctx, &thread, r.db.Rebind(query), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

// mapWriteError translate constraint violations into store errors
func mapWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return ErrConflict
	case isForeignKeyViolation(err):
		return ErrNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// expectAffected ErrNotFound when the statement touched nothing
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
