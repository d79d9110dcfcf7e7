package mapreduce

import (
	"sync"

	"LocalMR/internal/types"
)

// ResultSet is an unordered collection of reduce outputs that accepts
// concurrent inserts.
type ResultSet[K, V any] struct {
	mu    sync.Mutex
	pairs []types.ResultPair[K, V]
}

func newResultSet[K, V any]() *ResultSet[K, V] {
	return &ResultSet[K, V]{}
}

// Add inserts one result.
func (r *ResultSet[K, V]) Add(p types.ResultPair[K, V]) {
	r.mu.Lock()
	r.pairs = append(r.pairs, p)
	r.mu.Unlock()
}

// Len returns the number of results.
func (r *ResultSet[K, V]) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs)
}

// Pairs returns a copy of the results in no particular order.
func (r *ResultSet[K, V]) Pairs() []types.ResultPair[K, V] {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.ResultPair[K, V], len(r.pairs))
	copy(out, r.pairs)
	return out
}
