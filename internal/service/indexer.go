package service

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"forum_go/internal/core/logger"
	"forum_go/internal/search"
)

const indexTimeout = 10 * time.Second

var (
	indexOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_search_index_ops_total",
			Help: "Search index operations by kind and result",
		},
		[]string{"op", "result"},
	)

	indexErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_search_index_errors_total",
			Help: "Search index operations that failed or were dropped",
		},
		[]string{"op"},
	)

	indexQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forum_search_index_queue_depth",
			Help: "Pending search index operations",
		},
	)
)

type indexOp struct {
	remove bool
	doc    search.Document
	id     string
}

func (op indexOp) name() string {
	if op.remove {
		return "remove"
	}
	return "index"
}

func (op indexOp) target() string {
	if op.remove {
		return op.id
	}
	return op.doc.ID
}

// key ordering key: every document of one thread shares it
func (op indexOp) key() string {
	if !op.remove && op.doc.ThreadID != "" {
		return op.doc.ThreadID
	}
	return search.ThreadOfDocID(op.target())
}

// Indexer applies index writes after the content store commits.
// With workers > 0 writes are queued per thread shard, so writes for one
// thread apply in submission order; a full shard drops the write, which a
// later reindex repairs. Failures are logged and counted, never returned.
type Indexer struct {
	index  search.Index
	shards []chan indexOp
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewIndexer start workers over idx; workers <= 0 applies writes inline
func NewIndexer(idx search.Index, workers, queueSize int) *Indexer {
	ix := &Indexer{index: idx}
	if workers <= 0 {
		return ix
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	perShard := (queueSize + workers - 1) / workers
	ix.shards = make([]chan indexOp, workers)
	for i := range ix.shards {
		ix.shards[i] = make(chan indexOp, perShard)
		ix.wg.Add(1)
		go ix.run(ix.shards[i])
	}
	return ix
}

// Index schedule a document write
func (ix *Indexer) Index(doc search.Document) {
	ix.submit(indexOp{doc: doc})
}

// Remove schedule a document removal
func (ix *Indexer) Remove(id string) {
	ix.submit(indexOp{remove: true, id: id})
}

// Close stop accepting work and drain the queue
func (ix *Indexer) Close() {
	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return
	}
	ix.closed = true
	for _, shard := range ix.shards {
		close(shard)
	}
	ix.mu.Unlock()
	ix.wg.Wait()
}

func (ix *Indexer) submit(op indexOp) {
	ix.mu.RLock()
	if len(ix.shards) == 0 || ix.closed {
		ix.mu.RUnlock()
		ix.apply(op)
		return
	}
	select {
	case ix.shard(op.key()) <- op:
		indexQueueDepth.Inc()
		ix.mu.RUnlock()
	default:
		ix.mu.RUnlock()
		indexOpsTotal.WithLabelValues(op.name(), "dropped").Inc()
		indexErrorsTotal.WithLabelValues(op.name()).Inc()
		logger.Warn("search index queue full, dropping write",
			logger.String("op", op.name()),
			logger.String("id", op.target()))
	}
}

func (ix *Indexer) shard(key string) chan indexOp {
	return ix.shards[xxhash.Sum64String(key)%uint64(len(ix.shards))]
}

func (ix *Indexer) run(queue <-chan indexOp) {
	defer ix.wg.Done()
	for op := range queue {
		indexQueueDepth.Dec()
		ix.apply(op)
	}
}

func (ix *Indexer) apply(op indexOp) {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	var err error
	if op.remove {
		err = ix.index.Remove(ctx, op.id)
	} else {
		err = ix.index.Index(ctx, op.doc)
	}
	if err != nil {
		indexOpsTotal.WithLabelValues(op.name(), "error").Inc()
		indexErrorsTotal.WithLabelValues(op.name()).Inc()
		logger.Warn("search index write failed",
			logger.String("engine", ix.index.Name()),
			logger.String("op", op.name()),
			logger.String("id", op.target()),
			logger.ErrorField(err))
		return
	}
	indexOpsTotal.WithLabelValues(op.name(), "ok").Inc()
}
