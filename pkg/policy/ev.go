package policy

import (
	"github.com/paulmach/orb"

	"eroute/pkg/elevation"
)

// EV weighs segments by the energy an electric vehicle spends on them:
//
//	cost = distance * classFactor(tag) + ClimbPenalty * climb - RegenFactor * descent
//
// where climb and descent are the positive and negative height differences
// in meters between the endpoints. A missing terrain sample counts as flat.
// With RegenFactor > 0 steep descents can produce negative costs.
type EV struct {
	ClassFactors map[string]float64
	ClimbPenalty float64
	RegenFactor  float64
	Terrain      elevation.Model
}

func (e EV) Weight(tag string, distance float64, from, to orb.Point) float64 {
	factor := 1.0
	if f, ok := e.ClassFactors[tag]; ok {
		factor = f
	}
	cost := distance * factor

	if e.Terrain == nil {
		return cost
	}
	h0, ok0 := e.Terrain.Elevation(from)
	h1, ok1 := e.Terrain.Elevation(to)
	if !ok0 || !ok1 {
		return cost
	}
	if dh := h1 - h0; dh > 0 {
		cost += e.ClimbPenalty * dh
	} else {
		cost += e.RegenFactor * dh
	}
	return cost
}
