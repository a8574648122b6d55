package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 1000; i++ {
		id := Generate()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestGenerateConcurrentUnique(t *testing.T) {
	const n = 8
	const per = 500

	var mu sync.Mutex
	seen := make(map[int64]struct{}, n*per)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, per)
			for j := 0; j < per; j++ {
				ids = append(ids, Generate())
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n*per)
}
