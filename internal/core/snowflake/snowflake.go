package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// Init Initialize snowflake generator
func Init(cfg *config.SnowflakeConfig) error {
	var initErr error
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(cfg.WorkerID)
		if err != nil {
			logger.Error("failed to initialize snowflake",
				logger.ErrorField(err),
				logger.Int64("worker_id", cfg.WorkerID))
			initErr = err
			return
		}
		logger.Info("snowflake initialized",
			logger.Int64("worker_id", cfg.WorkerID))
	})
	return initErr
}

// Generate Generate new internal ID. Falls back to worker 0 when Init was never called.
func Generate() int64 {
	_ = Init(&config.SnowflakeConfig{})
	return node.Generate().Int64()
}
