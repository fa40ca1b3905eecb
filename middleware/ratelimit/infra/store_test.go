package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-guard/middleware/ratelimit/domain"
)

var ctx = context.Background()

func TestStore_HitCountsWithinWindow(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)

	w1, err := s.Hit(ctx, "k", t0, time.Second)
	require.NoError(t, err)
	w2, _ := s.Hit(ctx, "k", t0.Add(10*time.Millisecond), time.Second)

	assert.Equal(t, 1, w1.Count)
	assert.Equal(t, 2, w2.Count)
	assert.True(t, w1.ResetAt.Equal(t0.Add(time.Second)))
	assert.True(t, w2.ResetAt.Equal(w1.ResetAt), "window start is the first hit, not the latest")
}

func TestStore_HitRollsOverAtResetAt(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)

	for i := 0; i < 4; i++ {
		_, _ = s.Hit(ctx, "k", t0, time.Second)
	}
	w, _ := s.Hit(ctx, "k", t0.Add(time.Second), time.Second)

	assert.Equal(t, 1, w.Count)
	assert.True(t, w.ResetAt.Equal(t0.Add(2*time.Second)))
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)

	_, _ = s.Hit(ctx, "a", t0, time.Second)
	_, _ = s.Hit(ctx, "a", t0, time.Second)
	w, _ := s.Hit(ctx, "b", t0, time.Second)

	assert.Equal(t, 1, w.Count)
	assert.Equal(t, 2, s.Len())
}

func TestStore_ConcurrentHitsNeverShareACount(t *testing.T) {
	s := NewStore(WithShards(4))
	t0 := time.Unix(1000, 0)

	const n = 200
	counts := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, _ := s.Hit(ctx, "k", t0, time.Minute)
			counts <- w.Count
		}()
	}
	wg.Wait()
	close(counts)

	seen := make(map[int]bool, n)
	for c := range counts {
		assert.False(t, seen[c], "count %d handed out twice", c)
		seen[c] = true
	}
	w, _ := s.Get("k")
	assert.Equal(t, n, w.Count)
}

func TestStore_ReleaseOnlyTouchesChargedWindow(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)

	charged, _ := s.Hit(ctx, "k", t0, time.Second)
	_, _ = s.Hit(ctx, "k", t0, time.Second)

	ok, err := s.Release(ctx, "k", charged)
	require.NoError(t, err)
	assert.True(t, ok)
	w, _ := s.Get("k")
	assert.Equal(t, 1, w.Count)

	// janela nova: a cobrança antiga não pode ser desfeita nela
	_, _ = s.Hit(ctx, "k", t0.Add(time.Second), time.Second)
	ok, _ = s.Release(ctx, "k", charged)
	assert.False(t, ok)
	w, _ = s.Get("k")
	assert.Equal(t, 1, w.Count)
}

func TestStore_ReleaseNeverGoesNegative(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)

	charged, _ := s.Hit(ctx, "k", t0, time.Second)
	ok1, _ := s.Release(ctx, "k", charged)
	ok2, _ := s.Release(ctx, "k", charged)

	assert.True(t, ok1)
	assert.False(t, ok2)
	w, _ := s.Get("k")
	assert.Equal(t, 0, w.Count)

	ok, _ := s.Release(ctx, "missing", charged)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len(), "releasing an unknown key must not create it")
}

func TestStore_CleanupRemovesExpiredWindows(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(1000, 0)

	_, _ = s.Hit(ctx, "old", t0, time.Second)
	_, _ = s.Hit(ctx, "new", t0.Add(500*time.Millisecond), time.Second)

	n, err := s.Cleanup(ctx, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get(domain.Key("new"))
	assert.True(t, ok)
}
