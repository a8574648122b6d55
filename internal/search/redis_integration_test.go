//go:build integration

package search

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewRedisIndex(startRedis(t), "test")

	require.NoError(t, idx.Index(ctx, Document{ID: ThreadDocID("t1"), ThreadID: "t1", Kind: KindThread, Title: "Go channels", Text: "channels channels everywhere"}))
	require.NoError(t, idx.Index(ctx, Document{ID: ReplyDocID("t2", "r1"), ThreadID: "t2", Kind: KindReply, Text: "a channel of go"}))

	hits, err := idx.Search(ctx, "channels", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "t1", hits[0].ThreadID)
	assert.Equal(t, 3.0, hits[0].Score)

	hits, err = idx.Search(ctx, "go", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	// reindexing replaces postings
	require.NoError(t, idx.Index(ctx, Document{ID: ThreadDocID("t1"), ThreadID: "t1", Kind: KindThread, Title: "Renamed", Text: "nothing"}))
	hits, err = idx.Search(ctx, "channels", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Remove(ctx, ReplyDocID("t2", "r1")))
	require.NoError(t, idx.Remove(ctx, ReplyDocID("t2", "r1")))
	hits, err = idx.Search(ctx, "go", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
