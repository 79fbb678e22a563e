// Package cache implements the short-horizon memoizer used when evaluating
// decision vectors.
//
// The cache remembers the last few decision vectors seen together with their
// computed fitness (or constraint) vectors. Lookup is exact equality on the
// decision vector, not approximate: callers rely on re-reading just-written
// values bit-for-bit. This is not a general result store; it exists so that
// selection and comparison logic asking for the same vector's fitness several
// times in quick succession pays for a single computation.
package cache

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/pelago/pelago/pkg/errors"
)

// DefaultCapacity is the cache horizon used when no explicit capacity is
// configured. Small on purpose: the cache only needs to cover the span of a
// comparison or replacement step.
const DefaultCapacity = 5

// ComputeFunc is the raw, uncached computation invoked on a miss.
type ComputeFunc func(x []float64) ([]float64, error)

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// EvalCache is a bounded, move-to-front memoization of decision vector to
// result vector. The most-recently-used entry sits at the front; inserting
// beyond capacity drops the back entry.
type EvalCache struct {
	mu       sync.Mutex
	capacity int
	keyDim   int
	valDim   int
	keys     [][]float64
	vals     [][]float64
	hits     int64
	misses   int64
}

// New creates an EvalCache holding up to capacity entries, keyed by decision
// vectors of length keyDim mapping to result vectors of length valDim.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity, keyDim, valDim int) *EvalCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EvalCache{
		capacity: capacity,
		keyDim:   keyDim,
		valDim:   valDim,
		keys:     make([][]float64, 0, capacity),
		vals:     make([][]float64, 0, capacity),
	}
}

// LookupOrCompute returns the result vector for x, consulting the cache
// first. On a hit the entry is promoted to most-recently-used and no compute
// call happens; the hit flag is true. On a miss compute is invoked and the
// new entry is inserted at the front, evicting the oldest entry beyond
// capacity.
//
// Panics if compute returns a vector whose dimension differs from the one
// declared at construction: that is a bug in the compute implementation, not
// bad input.
func (c *EvalCache) LookupOrCompute(x []float64, compute ComputeFunc) ([]float64, bool, error) {
	if len(x) != c.keyDim {
		return nil, false, errors.WithFields(
			errors.New(errors.InvalidInput, "wrong decision vector size for cached evaluation"),
			errors.Fields{"got": len(x), "want": c.keyDim})
	}

	c.mu.Lock()
	if i := c.find(x); i >= 0 {
		c.promote(i)
		out := cloneVector(c.vals[0])
		c.hits++
		c.mu.Unlock()
		return out, true, nil
	}
	c.mu.Unlock()

	// Compute outside the lock: evaluation can be expensive and the cache is
	// exclusively owned during evolution anyway.
	val, err := compute(x)
	if err != nil {
		return nil, false, err
	}
	if len(val) != c.valDim {
		panic(fmt.Sprintf("cache: compute changed result dimension from %d to %d", c.valDim, len(val)))
	}

	c.mu.Lock()
	c.insertFront(x, val)
	c.misses++
	c.mu.Unlock()

	return cloneVector(val), false, nil
}

// Reset clears all entries. Called when the owning problem's internal state
// changes in a way that invalidates memoized results, e.g. stochastic
// re-seeding.
func (c *EvalCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = c.keys[:0]
	c.vals = c.vals[:0]
}

// Len returns the current number of cached entries.
func (c *EvalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// Capacity returns the configured horizon.
func (c *EvalCache) Capacity() int {
	return c.capacity
}

// Contains reports whether x is currently cached, without promoting it.
func (c *EvalCache) Contains(x []float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.find(x) >= 0
}

// GetStats returns hit/miss counters.
func (c *EvalCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:   c.hits,
		Misses: c.misses,
	}
}

// find scans the key list for exact equality with x. Caller holds the lock.
func (c *EvalCache) find(x []float64) int {
	for i, k := range c.keys {
		if floats.Equal(k, x) {
			return i
		}
	}
	return -1
}

// promote moves entry i to the front, preserving the relative order of the
// remaining entries. Caller holds the lock.
func (c *EvalCache) promote(i int) {
	if i == 0 {
		return
	}
	k, v := c.keys[i], c.vals[i]
	copy(c.keys[1:i+1], c.keys[0:i])
	copy(c.vals[1:i+1], c.vals[0:i])
	c.keys[0], c.vals[0] = k, v
}

// insertFront pushes a new entry at the front and drops the back entry when
// capacity is exceeded. Caller holds the lock.
func (c *EvalCache) insertFront(x, val []float64) {
	c.keys = append(c.keys, nil)
	c.vals = append(c.vals, nil)
	copy(c.keys[1:], c.keys[0:len(c.keys)-1])
	copy(c.vals[1:], c.vals[0:len(c.vals)-1])
	c.keys[0] = cloneVector(x)
	c.vals[0] = cloneVector(val)

	if len(c.keys) > c.capacity {
		// One insert can overflow by at most one entry.
		c.keys = c.keys[:len(c.keys)-1]
		c.vals = c.vals[:len(c.vals)-1]
	}
	if len(c.keys) > c.capacity {
		panic(fmt.Sprintf("cache: %d entries exceed capacity %d after eviction", len(c.keys), c.capacity))
	}
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
