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

const tagColumns = "id, public_id, name, created_at, modified_at"

// TagMatch thread matched by a tag query and how many of the tags it carries
type TagMatch struct {
	ThreadID int64 `db:"thread_id"`
	Matched  int   `db:"matched"`
}

// TagRepository Tag data access interface
type TagRepository interface {
	GetByName(ctx context.Context, name string) (*model.Tag, error)
	GetOrCreate(ctx context.Context, name string) (*model.Tag, error)
	GetByThread(ctx context.Context, threadID int64) ([]*model.Tag, error)
	GetByThreads(ctx context.Context, threadIDs []int64) (map[int64][]*model.Tag, error)
	List(ctx context.Context, limit int) ([]*model.TagWithCount, error)
	ThreadIDsByTags(ctx context.Context, names []string, limit int) ([]TagMatch, error)
}

// tagRepository Tag data access implementation
type tagRepository struct {
	db *sqlx.DB
}

// NewTagRepository create TagRepository instance
func NewTagRepository(db *sqlx.DB) TagRepository {
	return &tagRepository{db: db}
}

// GetByName get Tag by exact name, nil when absent
func (r *tagRepository) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.GetContext(ctx, &tag, r.db.Rebind("SELECT "+tagColumns+" FROM tags WHERE name = ?"), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

// GetOrCreate return the named tag, creating it when absent.
// A concurrent creator losing on the unique key reads the winner's row.
func (r *tagRepository) GetOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	tag, err := r.GetByName(ctx, name)
	if err != nil || tag != nil {
		return tag, err
	}

	ts := now()
	tag = &model.Tag{
		ID:         snowflake.Generate(),
		PublicID:   uuid.NewString(),
		Name:       name,
		CreatedAt:  ts,
		ModifiedAt: ts,
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO tags (id, public_id, name, created_at, modified_at) VALUES (?, ?, ?, ?, ?)"),
		tag.ID, tag.PublicID, tag.Name, tag.CreatedAt, tag.ModifiedAt)
	if err == nil {
		return tag, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	tag, err = r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrConflict
	}
	return tag, nil
}

// GetByThread tags attached to a thread, by name
func (r *tagRepository) GetByThread(ctx context.Context, threadID int64) ([]*model.Tag, error) {
	var tags []*model.Tag
	query := r.db.Rebind(`
		SELECT t.id, t.public_id, t.name, t.created_at, t.modified_at FROM tags t
		INNER JOIN thread_tags tt ON t.id = tt.tag_id
		WHERE tt.thread_id = ?
		ORDER BY t.name ASC
	`)
	if err := r.db.SelectContext(ctx, &tags, query, threadID); err != nil {
		return nil, err
	}
	return tags, nil
}

// GetByThreads tags for several threads at once, keyed by thread id
func (r *tagRepository) GetByThreads(ctx context.Context, threadIDs []int64) (map[int64][]*model.Tag, error) {
	result := make(map[int64][]*model.Tag, len(threadIDs))
	if len(threadIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`
		SELECT tt.thread_id, t.id, t.public_id, t.name, t.created_at, t.modified_at FROM tags t
		INNER JOIN thread_tags tt ON t.id = tt.tag_id
		WHERE tt.thread_id IN (?)
		ORDER BY t.name ASC
	`, threadIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ThreadID int64 `db:"thread_id"`
		model.Tag
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for i := range rows {
		tag := rows[i].Tag
		result[rows[i].ThreadID] = append(result[rows[i].ThreadID], &tag)
	}
	return result, nil
}

// List tags with their thread counts, most used first
func (r *tagRepository) List(ctx context.Context, limit int) ([]*model.TagWithCount, error) {
	var tags []*model.TagWithCount
	query := r.db.Rebind(`
		SELECT t.id, t.public_id, t.name, t.created_at, t.modified_at, COUNT(tt.thread_id) AS threads
		FROM tags t
		LEFT JOIN thread_tags tt ON t.id = tt.tag_id
		GROUP BY t.id, t.public_id, t.name, t.created_at, t.modified_at
		ORDER BY threads DESC, t.name ASC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &tags, query, limit); err != nil {
		return nil, err
	}
	return tags, nil
}

// ThreadIDsByTags threads carrying any of the names, most matches first
func (r *tagRepository) ThreadIDsByTags(ctx context.Context, names []string, limit int) ([]TagMatch, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT tt.thread_id, COUNT(*) AS matched
		FROM thread_tags tt
		INNER JOIN tags t ON t.id = tt.tag_id
		WHERE t.name IN (?)
		GROUP BY tt.thread_id
		ORDER BY matched DESC, tt.thread_id DESC
		LIMIT ?
	`, names, limit)
	if err != nil {
		return nil, err
	}
	var matches []TagMatch
	if err := r.db.SelectContext(ctx, &matches, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return matches, nil
}
