package service

import (
	"context"
	"sort"
	"strings"

	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/search"
)

const (
	searchLimit  = 50
	reindexBatch = 200
)

// SearchThreads full-text search over threads and replies, one result per thread.
// An empty query or an unavailable index yields no results rather than an error.
func (s *ForumService) SearchThreads(ctx context.Context, query string) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*SearchResult{}, nil
	}

	hits, err := s.index.Search(ctx, query, searchLimit)
	if err != nil {
		logger.Warn("search index unavailable",
			logger.String("engine", s.index.Name()),
			logger.String("query", query),
			logger.ErrorField(err))
		return []*SearchResult{}, nil
	}

	best := make(map[string]float64, len(hits))
	for _, h := range hits {
		if score, ok := best[h.ThreadID]; !ok || h.Score > score {
			best[h.ThreadID] = h.Score
		}
	}
	publicIDs := make([]string, 0, len(best))
	for id := range best {
		publicIDs = append(publicIDs, id)
	}

	threads, err := s.threads.GetByPublicIDs(ctx, publicIDs)
	if err != nil {
		return nil, err
	}
	scores := make(map[int64]float64, len(threads))
	for _, t := range threads {
		scores[t.ID] = best[t.PublicID]
	}
	return s.results(ctx, threads, scores)
}

// SearchThreadsByTags threads carrying any of the tags, scored by how many they carry
func (s *ForumService) SearchThreadsByTags(ctx context.Context, tags []string) ([]*SearchResult, error) {
	names := normalizeTags(tags)
	if len(names) == 0 {
		return []*SearchResult{}, nil
	}

	matches, err := s.tags.ThreadIDsByTags(ctx, names, searchLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(matches))
	scores := make(map[int64]float64, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ThreadID)
		scores[m.ThreadID] = float64(m.Matched)
	}

	threads, err := s.threads.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.results(ctx, threads, scores)
}

// results ranked by score, then newest first
func (s *ForumService) results(ctx context.Context, threads []*model.Thread, scores map[int64]float64) ([]*SearchResult, error) {
	authorIDs := make([]int64, 0, len(threads))
	for _, t := range threads {
		authorIDs = append(authorIDs, t.CreatedBy)
	}
	authors, err := s.users.Authors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(threads))
	for _, t := range threads {
		results = append(results, &SearchResult{
			PublicID:  t.PublicID,
			Title:     s.renderer.Title(t.Title),
			Author:    authors[t.CreatedBy],
			Score:     scores[t.ID],
			CreatedAt: t.CreatedAt,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// Reindex rebuild every search document from the store. Index write failures
// are logged and counted in failed; store failures abort.
func (s *ForumService) Reindex(ctx context.Context) (indexed, failed int, err error) {
	var after int64
	for {
		threads, err := s.threads.ListAfter(ctx, after, reindexBatch)
		if err != nil {
			return indexed, failed, err
		}
		if len(threads) == 0 {
			break
		}
		for _, t := range threads {
			replies, err := s.replies.ListByThread(ctx, t.ID)
			if err != nil {
				return indexed, failed, err
			}
			docs := make([]search.Document, 0, len(replies)+1)
			if len(replies) == 0 {
				docs = append(docs, threadDocument(t, nil))
			} else {
				docs = append(docs, threadDocument(t, replies[0]))
				for _, r := range replies[1:] {
					docs = append(docs, replyDocument(t, r))
				}
			}
			for _, doc := range docs {
				if err := s.index.Index(ctx, doc); err != nil {
					failed++
					indexErrorsTotal.WithLabelValues("reindex").Inc()
					logger.Warn("reindex document failed", logger.String("id", doc.ID), logger.ErrorField(err))
					continue
				}
				indexed++
			}
		}
		after = threads[len(threads)-1].ID
	}

	logger.Info("reindex completed",
		logger.String("engine", s.index.Name()),
		logger.Int("indexed", indexed),
		logger.Int("failed", failed))
	return indexed, failed, nil
}
