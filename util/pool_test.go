package util

import (
	"sync"
	"testing"
)

func TestBufferPoolAcquireSize(t *testing.T) {
	t.Parallel()

	bp := NewBufferPool(4)

	for _, size := range []int{0, 1, 64, 1024} {
		buf := bp.Acquire(size)
		if len(buf) != size {
			t.Errorf("Acquire(%d) len = %d, want %d", size, len(buf), size)
		}
		bp.Release(buf)
	}
}

func TestBufferPoolReuse(t *testing.T) {
	t.Parallel()

	bp := NewBufferPool(4)

	buf := bp.Acquire(128)
	buf[3] = 42
	bp.Release(buf)

	again := bp.Acquire(64)
	if cap(again) < 128 {
		t.Fatalf("Acquire(64) cap = %d, want reused buffer with cap >= 128", cap(again))
	}

	for i, v := range again {
		if v != 0 {
			t.Fatalf("Acquire(64)[%d] = %v, want zeroed buffer", i, v)
		}
	}

	if got := bp.Reuses(); got != 1 {
		t.Errorf("Reuses() = %d, want 1", got)
	}
}

func TestBufferPoolNoGrowth(t *testing.T) {
	t.Parallel()

	bp := NewBufferPool(DefaultPoolSlots)

	for i := 0; i < 10000; i++ {
		buf := bp.Acquire(256)
		if cap(buf) < 256 {
			t.Fatalf("cycle %d: cap = %d, want >= 256", i, cap(buf))
		}
		bp.Release(buf)
	}

	if got := bp.Allocs(); got != 1 {
		t.Errorf("Allocs() = %d, want 1 after acquire/release cycles", got)
	}
}

func TestBufferPoolTooSmall(t *testing.T) {
	t.Parallel()

	bp := NewBufferPool(2)
	bp.Release(make([]float64, 8))

	buf := bp.Acquire(32)
	if len(buf) != 32 {
		t.Fatalf("Acquire(32) len = %d, want 32", len(buf))
	}

	if got := bp.Allocs(); got != 1 {
		t.Errorf("Allocs() = %d, want 1", got)
	}
}

func TestBufferPoolBounded(t *testing.T) {
	t.Parallel()

	bp := NewBufferPool(3)

	for i := 0; i < 10; i++ {
		bp.Release(make([]float64, 4))
	}

	if got := bp.Idle(); got != 3 {
		t.Errorf("Idle() = %d, want 3", got)
	}

	bp.Release(nil)
	if got := bp.Idle(); got != 3 {
		t.Errorf("Idle() after Release(nil) = %d, want 3", got)
	}
}

func TestBufferPoolConcurrent(t *testing.T) {
	t.Parallel()

	bp := NewBufferPool(DefaultPoolSlots)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				buf := bp.Acquire(64)
				for j := range buf {
					buf[j] = float64(g)
				}
				for j := range buf {
					if buf[j] != float64(g) {
						t.Errorf("buffer shared between goroutines")
						return
					}
				}
				bp.Release(buf)
			}
		}(g)
	}

	wg.Wait()
}

func BenchmarkBufferPool(b *testing.B) {
	bp := NewBufferPool(DefaultPoolSlots)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bp.Release(bp.Acquire(1024))
	}
}
