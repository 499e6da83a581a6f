package policy

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eroute/pkg/elevation"
)

func TestTags(t *testing.T) {
	v := NewTags([]string{"motorway", "primary"}, []string{"primary"})
	tests := []struct {
		tag  string
		want bool
	}{
		{"motorway", true},
		{"primary", false},
		{"footway", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Valid(tt.tag))
		})
	}
}

func TestTagsEmptyAllow(t *testing.T) {
	v := NewTags(nil, []string{"footway"})
	assert.True(t, v.Valid("anything"))
	assert.False(t, v.Valid("footway"))
}

func TestFuncsDefaults(t *testing.T) {
	var f Funcs
	assert.True(t, f.Valid("x"))
	assert.Equal(t, 42.0, f.Weight("x", 42, orb.Point{}, orb.Point{}))

	f = Funcs{
		ValidFunc:  func(tag string) bool { return tag == "motorway" },
		WeightFunc: func(string, float64, orb.Point, orb.Point) float64 { return 1 },
	}
	assert.True(t, f.Valid("motorway"))
	assert.False(t, f.Valid("residential"))
	assert.Equal(t, 1.0, f.Weight("motorway", 42, orb.Point{}, orb.Point{}))
}

func TestUnitAndDistance(t *testing.T) {
	assert.Equal(t, 1.0, Unit{}.Weight("motorway", 500, orb.Point{}, orb.Point{1, 1}))
	assert.Equal(t, 500.0, Distance{}.Weight("motorway", 500, orb.Point{}, orb.Point{1, 1}))
}

// slope rises 10 m per degree of longitude.
type slope struct{}

func (slope) Elevation(p orb.Point) (float64, bool) {
	if p.Lon() < 0 {
		return 0, false
	}
	return p.Lon() * 10, true
}

func TestEV(t *testing.T) {
	ev := EV{
		ClassFactors: map[string]float64{"motorway": 1.5},
		ClimbPenalty: 2,
		RegenFactor:  0.5,
		Terrain:      slope{},
	}
	a, b := orb.Point{0, 0}, orb.Point{1, 0}

	tests := []struct {
		name     string
		tag      string
		from, to orb.Point
		want     float64
	}{
		{"uphill", "motorway", a, b, 100*1.5 + 2*10},
		{"downhill", "motorway", b, a, 100*1.5 - 0.5*10},
		{"default factor", "residential", a, b, 100 + 2*10},
		{"no sample", "residential", orb.Point{-1, 0}, b, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ev.Weight(tt.tag, 100, tt.from, tt.to), 1e-9)
		})
	}
}

func TestEVNegativeCost(t *testing.T) {
	ev := EV{RegenFactor: 5, Terrain: slope{}}
	got := ev.Weight("residential", 10, orb.Point{2, 0}, orb.Point{0, 0})
	assert.Less(t, got, 0.0)
}

func TestProfilePolicy(t *testing.T) {
	p := DefaultProfile()
	pol, err := p.Policy(nil)
	require.NoError(t, err)
	assert.True(t, pol.Valid("motorway"))
	assert.False(t, pol.Valid("footway"))
	assert.Equal(t, 12.0, pol.Weight("motorway", 12, orb.Point{}, orb.Point{}))

	p.Weighting = WeightingUnit
	pol, err = p.Policy(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pol.Weight("motorway", 12, orb.Point{}, orb.Point{}))

	p.Weighting = WeightingEV
	p.ClimbPenalty = 3
	pol, err = p.Policy(elevation.Flat{})
	require.NoError(t, err)
	assert.Equal(t, 12.0, pol.Weight("motorway", 12, orb.Point{}, orb.Point{1, 0}))

	p.Weighting = "teleport"
	_, err = p.Policy(nil)
	assert.Error(t, err)
}
