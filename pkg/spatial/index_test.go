package spatial

import (
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threePoints() *Index {
	ix := New()
	ix.Insert(orb.Point{0, 0}, 100)
	ix.Insert(orb.Point{0, 1}, 200)
	ix.Insert(orb.Point{1, 1}, 300)
	return ix
}

func TestNearest(t *testing.T) {
	ix := threePoints()
	require.Equal(t, 3, ix.Len())

	tests := []struct {
		name  string
		query orb.Point
		want  int64
	}{
		{"exact A", orb.Point{0, 0}, 100},
		{"exact B", orb.Point{0, 1}, 200},
		{"exact C", orb.Point{1, 1}, 300},
		{"near A", orb.Point{0.1, -0.2}, 100},
		{"near B", orb.Point{-0.3, 0.9}, 200},
		{"near C", orb.Point{1.4, 1.2}, 300},
		{"far away closer to C", orb.Point{50, 50}, 300},
		{"between A and B slightly toward B", orb.Point{0, 0.51}, 200},
		{"between A and B slightly toward A", orb.Point{0, 0.49}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ix.Nearest(tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNearestTieBreaksByInsertionOrder(t *testing.T) {
	ix := threePoints()

	// (0, 0.5) is equidistant from A and B.
	got, ok := ix.Nearest(orb.Point{0, 0.5})
	require.True(t, ok)
	assert.Equal(t, int64(100), got)

	// (0.5, 1) is equidistant from B and C.
	got, ok = ix.Nearest(orb.Point{0.5, 1})
	require.True(t, ok)
	assert.Equal(t, int64(200), got)

	// Same coordinates inserted twice: first one wins.
	dup := New()
	dup.Insert(orb.Point{5, 5}, 7)
	dup.Insert(orb.Point{5, 5}, 3)
	got, ok = dup.Nearest(orb.Point{5, 5})
	require.True(t, ok)
	assert.Equal(t, int64(7), got)
}

func TestNearestTieManyPoints(t *testing.T) {
	// Ring of points around the origin, all at distance 1.
	ix := New()
	ring := []orb.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	for i := len(ring) - 1; i >= 0; i-- {
		ix.Insert(ring[i], int64(i))
	}
	// Inserted in reverse, so id 3 was first.
	for range 10 {
		got, ok := ix.Nearest(orb.Point{0, 0})
		require.True(t, ok)
		assert.Equal(t, int64(3), got)
	}
}

func TestNearestEmpty(t *testing.T) {
	ix := New()
	_, ok := ix.Nearest(orb.Point{1, 2})
	assert.False(t, ok)
	assert.Zero(t, ix.Len())
}

func TestNearestConcurrent(t *testing.T) {
	ix := New()
	for i := range 1000 {
		ix.Insert(orb.Point{float64(i % 40), float64(i / 40)}, int64(i))
	}

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < 1000; i += 8 {
				got, ok := ix.Nearest(orb.Point{float64(i%40) + 0.1, float64(i/40) + 0.1})
				assert.True(t, ok)
				assert.Equal(t, int64(i), got)
			}
		}()
	}
	wg.Wait()
}
