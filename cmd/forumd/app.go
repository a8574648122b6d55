package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"forum_go/internal/core/config"
	"forum_go/internal/core/database"
	"forum_go/internal/core/logger"
	"forum_go/internal/core/snowflake"
	"forum_go/internal/repository"
	"forum_go/internal/search"
	"forum_go/internal/service"
)

// app wired dependencies shared by the subcommands
type app struct {
	cfg     *config.Config
	db      *sqlx.DB
	redis   *redis.Client
	index   search.Index
	indexer *service.Indexer
	threads repository.ThreadRepository
	users   *service.UserService
	tags    *service.TagService
	forum   *service.ForumService
}

// newApp connect storage and build the services
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Get()
	a := &app{cfg: cfg}

	if err := snowflake.Init(&cfg.Snowflake); err != nil {
		return nil, fmt.Errorf("init snowflake: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, err
	}
	a.db = database.Get()

	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// L2 cache degrades to L1 only; the redis search engine cannot
			if cfg.Search.Engine == search.EngineRedis {
				a.close()
				return nil, fmt.Errorf("redis unavailable: %w", err)
			}
			logger.Warn("redis unavailable, L2 cache disabled", logger.ErrorField(err))
			_ = a.redis.Close()
			a.redis = nil
		}
	}

	index, err := search.New(&cfg.Search, a.redis)
	if err != nil {
		a.close()
		return nil, err
	}
	a.index = index

	a.threads = repository.NewThreadRepository(a.db)
	replies := repository.NewReplyRepository(a.db)
	tagRepo := repository.NewTagRepository(a.db)

	policy, err := service.NewPolicy(cfg.Forum.Policy, a.threads, replies)
	if err != nil {
		a.close()
		return nil, err
	}

	a.indexer = service.NewIndexer(index, cfg.Search.Workers, cfg.Search.QueueSize)
	a.users = service.NewUserService(repository.NewUserRepository(a.db), a.redis, &cfg.Cache)
	a.tags = service.NewTagService(tagRepo)
	a.forum = service.NewForumService(service.ForumDeps{
		Threads:    a.threads,
		Replies:    replies,
		Tags:       tagRepo,
		ThreadTags: repository.NewThreadTagRepository(a.db),
		Users:      a.users,
		Index:      index,
		Indexer:    a.indexer,
		Policy:     policy,
		Config:     &cfg.Forum,
	})

	logger.Info("services ready",
		logger.String("database", cfg.Database.Driver),
		logger.String("search", index.Name()),
		logger.String("policy", cfg.Forum.Policy))
	return a, nil
}

// close drain pending index writes, then release connections
func (a *app) close() {
	if a.indexer != nil {
		a.indexer.Close()
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			logger.Warn("close search index", logger.ErrorField(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = database.Close()
}
