// Package pool provides object pooling to reduce GC pressure in the join
// engine's hot path, where each key-group and each per-worker edge map is
// allocated and discarded at high frequency.
package pool

import (
	"sync"

	"github.com/kittclouds/coordnet/internal/store"
)

// RowGroupPool pools the []store.Row slices the Temporal Join Engine's
// producer goroutine fills with one key-group before handing it to a worker.
var RowGroupPool = sync.Pool{
	New: func() interface{} {
		return make([]store.Row, 0, 32)
	},
}

// GetRowGroup gets a zero-length, reusable row slice from the pool.
func GetRowGroup() []store.Row {
	return RowGroupPool.Get().([]store.Row)[:0]
}

// PutRowGroup returns a row slice to the pool once its worker has finished
// scanning it.
func PutRowGroup(s []store.Row) {
	RowGroupPool.Put(s)
}

// EdgeWeightPool pools the map[[2]string]int partial maps ((user_a, user_b)
// to weight) each join worker accumulates into before merging.
var EdgeWeightPool = sync.Pool{
	New: func() interface{} {
		return make(map[[2]string]int, 64)
	},
}

// GetEdgeWeightMap gets an empty map from the pool.
func GetEdgeWeightMap() map[[2]string]int {
	return EdgeWeightPool.Get().(map[[2]string]int)
}

// PutEdgeWeightMap clears and returns a map to the pool.
func PutEdgeWeightMap(m map[[2]string]int) {
	for k := range m {
		delete(m, k)
	}
	EdgeWeightPool.Put(m)
}
