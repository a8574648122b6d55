package search

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"forum_go/internal/core/config"
)

// Engine names accepted by search.engine
const (
	EngineNull        = "null"
	EngineMeilisearch = "meilisearch"
	EngineRedis       = "redis"
)

// New build the configured index. rdb may be nil unless the redis engine is selected.
func New(cfg *config.SearchConfig, rdb *redis.Client) (Index, error) {
	switch cfg.Engine {
	case "", EngineNull:
		return NewNullIndex(), nil
	case EngineMeilisearch:
		return NewMeiliIndex(cfg.Meili)
	case EngineRedis:
		if rdb == nil {
			return nil, fmt.Errorf("search engine %q requires redis", cfg.Engine)
		}
		return NewRedisIndex(rdb, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported search engine %q", cfg.Engine)
	}
}
