package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"forum_go/internal/core/logger"
	"forum_go/internal/repository"
	"forum_go/internal/service"
)

const warmupTags = 20

// Runtime process-wide snapshot served by /runtime and /
type Runtime struct {
	tagList     []service.TagView
	threadCount int
	engine      string
	mu          sync.RWMutex
	startedAt   time.Time
	loadedAt    time.Time
}

// Singleton instance
var rt *Runtime
var once sync.Once

// RuntimeConfig sources for the snapshot
type RuntimeConfig struct {
	ThreadRepo repository.ThreadRepository
	TagSvc     *service.TagService
	Engine     string // search engine name
}

// Init build the process Runtime once
func Init(cfg *RuntimeConfig) error {
	var initErr error
	once.Do(func() {
		rt = New()
		initErr = rt.warmup(cfg)
	})
	return initErr
}

// Get Runtime instance, nil before Init
func Get() *Runtime {
	return rt
}

// New empty Runtime
func New() *Runtime {
	return &Runtime{startedAt: time.Now()}
}

// warmup load counts and popular tags; failures are logged and leave the old values
func (r *Runtime) warmup(cfg *RuntimeConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	start := time.Now()

	if cfg.ThreadRepo != nil {
		count, err := cfg.ThreadRepo.Count(ctx)
		if err != nil {
			logger.Error("warmup thread count failed", logger.ErrorField(err))
		} else {
			r.mu.Lock()
			r.threadCount = count
			r.mu.Unlock()
		}
	}

	if cfg.TagSvc != nil {
		list, err := cfg.TagSvc.List(ctx, warmupTags)
		if err != nil {
			logger.Error("warmup tag list failed", logger.ErrorField(err))
		} else {
			r.mu.Lock()
			r.tagList = list
			r.mu.Unlock()
		}
	}

	r.mu.Lock()
	r.engine = cfg.Engine
	r.loadedAt = time.Now()
	r.mu.Unlock()

	logger.Info("runtime warmup completed",
		logger.String("engine", cfg.Engine),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// Reload refresh the snapshot
func (r *Runtime) Reload(cfg *RuntimeConfig) error {
	return r.warmup(cfg)
}

// GetTagList popular tags at last load
func (r *Runtime) GetTagList() []service.TagView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tagList
}

// Status snapshot for the status endpoint
func (r *Runtime) Status() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]interface{}{
		"search_engine": r.engine,
		"thread_count":  r.threadCount,
		"tag_count":     len(r.tagList),
		"tags":          r.tagList,
		"started_at":    r.startedAt.UTC().Format(time.RFC3339),
		"loaded_at":     r.loadedAt.UTC().Format(time.RFC3339),
		"uptime":        time.Since(r.startedAt).Round(time.Second).String(),
	}
}

// WarmUpLog one-line summary
func WarmUpLog() string {
	if rt == nil {
		return "runtime not initialized"
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return fmt.Sprintf("Threads: %d, Tags: %d, Search: %s, Loaded: %s",
		rt.threadCount, len(rt.tagList), rt.engine, rt.loadedAt.Format("2006-01-02 15:04:05"))
}
