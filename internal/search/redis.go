package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "forum:search"

// RedisIndex inverted index on Redis.
//
// Every term owns a sorted set of document ids scored by term frequency. Each
// document keeps a hash with its thread id and term list so it can be removed.
// A query scores documents by summing the sets of its terms.
type RedisIndex struct {
	rdb    *redis.Client
	prefix string
}

var _ Index = (*RedisIndex)(nil)

// NewRedisIndex create a Redis backed index
func NewRedisIndex(rdb *redis.Client, prefix string) *RedisIndex {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisIndex{rdb: rdb, prefix: strings.TrimRight(prefix, ":")}
}

// Name engine name
func (r *RedisIndex) Name() string { return EngineRedis }

// Index add or replace a document
func (r *RedisIndex) Index(ctx context.Context, doc Document) error {
	if err := r.Remove(ctx, doc.ID); err != nil {
		return err
	}

	freq := make(map[string]float64)
	for _, term := range Tokenize(documentText(doc)) {
		freq[term]++
	}
	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for term, n := range freq {
			pipe.ZIncrBy(ctx, r.termKey(term), n, doc.ID)
		}
		pipe.HSet(ctx, r.docKey(doc.ID),
			"thread_id", doc.ThreadID,
			"kind", string(doc.Kind),
			"terms", strings.Join(terms, " "))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis index %s: %w", doc.ID, err)
	}
	return nil
}

// Remove delete a document and its postings
func (r *RedisIndex) Remove(ctx context.Context, id string) error {
	terms, err := r.rdb.HGet(ctx, r.docKey(id), "terms").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis load %s: %w", id, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, term := range strings.Fields(terms) {
			pipe.ZRem(ctx, r.termKey(term), id)
		}
		pipe.Del(ctx, r.docKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis remove %s: %w", id, err)
	}
	return nil
}

// Search sum of term frequencies over the query terms
func (r *RedisIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	seen := make(map[string]struct{})
	var keys []string
	for _, term := range Tokenize(query) {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		keys = append(keys, r.termKey(term))
	}
	if len(keys) == 0 {
		return nil, nil
	}

	scored, err := r.rdb.ZUnionWithScores(ctx, redis.ZStore{Keys: keys, Aggregate: "SUM"}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis search: %w", err)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return fmt.Sprint(scored[i].Member) < fmt.Sprint(scored[j].Member)
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(scored))
	for i, z := range scored {
		cmds[i] = pipe.HGet(ctx, r.docKey(fmt.Sprint(z.Member)), "thread_id")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis search meta: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for i, z := range scored {
		threadID, err := cmds[i].Result()
		if err != nil {
			// posting without a document hash, left behind by an interrupted remove
			continue
		}
		hits = append(hits, Hit{ID: fmt.Sprint(z.Member), ThreadID: threadID, Score: z.Score})
	}
	return hits, nil
}

// Close the client is owned by the caller
func (r *RedisIndex) Close() error { return nil }

func (r *RedisIndex) termKey(term string) string {
	return r.prefix + ":term:" + term
}

func (r *RedisIndex) docKey(id string) string {
	return r.prefix + ":doc:" + id
}
