package shard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPick(t *testing.T) {
	t.Run("consistency", func(t *testing.T) {
		first := Pick("test-key-123", 10)
		for range 5 {
			require.Equal(t, first, Pick("test-key-123", 10))
		}
	})

	t.Run("bounds", func(t *testing.T) {
		keys := []string{"key1", "key2", "key3", "long-key-with-many-characters", ""}
		counts := []int{1, 2, 5, 10, 100}

		for _, key := range keys {
			for _, n := range counts {
				got := Pick(key, n)
				require.True(t, got >= 0 && got < n, "out of bounds: key=%q, n=%d, got=%d", key, n, got)
			}
		}
	})

	t.Run("degenerate bucket counts", func(t *testing.T) {
		require.Equal(t, 0, Pick("k", 0))
		require.Equal(t, 0, Pick("k", -3))
		require.Equal(t, 0, Pick("k", 1))
	})

	t.Run("distribution", func(t *testing.T) {
		n := 10
		distribution := make(map[int]int)

		for i := range 1000 {
			distribution[Pick(fmt.Sprintf("key-%d", i), n)]++
		}

		require.Len(t, distribution, n)
		for bucket, count := range distribution {
			require.True(t, count <= 200, "unbalanced distribution: bucket %d has %d of 1000 keys", bucket, count)
		}
	})

	t.Run("growth moves few keys", func(t *testing.T) {
		moved := 0
		for i := range 1000 {
			key := fmt.Sprintf("key-%d", i)
			before, after := Pick(key, 4), Pick(key, 5)
			if before != after {
				require.Equal(t, 4, after, "a key may only move to the new bucket")
				moved++
			}
		}
		require.Less(t, moved, 350)
	})
}

func TestJumpHash(t *testing.T) {
	require.Equal(t, 0, JumpHash(12345, 0))
	require.Equal(t, 0, JumpHash(12345, 1))

	for key := range uint64(100) {
		got := JumpHash(key, 7)
		require.True(t, got >= 0 && got < 7)
	}
}

func BenchmarkPick(b *testing.B) {
	for b.Loop() {
		Pick("benchmark-key-123", 10)
	}
}
