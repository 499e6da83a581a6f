package graph

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangle is A(0,0) -> B(0,1) -> C(1,1) plus a direct A -> C.
func triangle() *Persisted {
	return &Persisted{
		Nodes: []Node{
			{ID: 1, Lon: 0, Lat: 0},
			{ID: 2, Lon: 0, Lat: 1},
			{ID: 3, Lon: 1, Lat: 1},
		},
		Edges: []Edge{
			{Source: 0, Target: 1, Weight: 1},
			{Source: 1, Target: 2, Weight: 1},
			{Source: 0, Target: 2, Weight: 5},
		},
	}
}

func TestNew(t *testing.T) {
	g, err := New(triangle())
	require.NoError(t, err)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
	assert.False(t, g.HasNegativeWeights())

	assert.ElementsMatch(t, []uint32{0, 2}, g.EdgesFrom(0))
	assert.Equal(t, []uint32{1}, g.EdgesFrom(1))
	assert.Empty(t, g.EdgesFrom(2))

	i, ok := g.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, uint32(2), i)
	_, ok = g.Lookup(99)
	assert.False(t, ok)

	id, ok := g.Nearest(orb.Point{0.9, 0.8})
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
}

func TestNewRejects(t *testing.T) {
	tests := []struct {
		name string
		p    *Persisted
		want error
	}{
		{"nil", nil, ErrEmptyGraph},
		{"no nodes", &Persisted{}, ErrEmptyGraph},
		{"dangling edge", &Persisted{
			Nodes: []Node{{ID: 1}},
			Edges: []Edge{{Source: 0, Target: 1, Weight: 1}},
		}, ErrInvariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNegativeWeights(t *testing.T) {
	p := triangle()
	p.Edges[1].Weight = -0.5
	g, err := New(p)
	require.NoError(t, err)
	assert.True(t, g.HasNegativeWeights())
}
