// Package shard maps keys onto a fixed number of buckets.
package shard

import "github.com/zeebo/xxh3"

// Pick returns the bucket in [0, n) owning key, 0 when n <= 1.
// Growing n from k to k+1 moves about 1/(k+1) of the keys.
func Pick(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return JumpHash(xxh3.HashString(key), n)
}

// JumpHash implements the Jump consistent hashing algorithm.
// Google's "Jump" Consistent Hash function: https://arxiv.org/abs/1406.2294
func JumpHash(key uint64, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}

	var b int64 = -1
	var j int64

	for j < int64(numBuckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}

	return int(b)
}
