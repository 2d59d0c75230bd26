package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNow_Advances(t *testing.T) {
	start := Now()
	require.WithinDuration(t, time.Now(), start, time.Second)

	require.Eventually(t, func() bool {
		return Now().After(start)
	}, time.Second, Resolution)
}

// BenchmarkNow/time-8         	35926340	        32.82 ns/op
// BenchmarkNow/coarsetime-8   	609668066	         1.950 ns/op
func BenchmarkNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
