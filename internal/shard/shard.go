// Package shard maps keys onto a fixed number of shards.
package shard

import "hash/fnv"

// Max is the largest supported shard count.
const Max = 256

// Of returns the shard in [0, n) that key belongs to.
// With n <= 1 every key goes to shard 0; n is clamped to Max.
func Of(key string, n int) int {
	if n <= 1 {
		return 0
	}
	if n > Max {
		n = Max
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// Count clamps a requested shard count to [1, Max].
func Count(n int) int {
	if n < 1 {
		return 1
	}
	if n > Max {
		return Max
	}
	return n
}
