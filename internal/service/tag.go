package service

import (
	"context"

	"forum_go/internal/repository"
)

const defaultTagLimit = 50

// TagService tag listing
type TagService struct {
	repo repository.TagRepository
}

// NewTagService create TagService instance
func NewTagService(repo repository.TagRepository) *TagService {
	return &TagService{repo: repo}
}

// List most used tags first
func (s *TagService) List(ctx context.Context, limit int) ([]TagView, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultTagLimit
	}
	tags, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, TagView{Name: t.Name, Threads: t.Threads})
	}
	return views, nil
}
