package policy

import (
	"fmt"

	"eroute/pkg/elevation"
)

// Weighting modes accepted by Profile.
const (
	WeightingUnit     = "unit"
	WeightingDistance = "distance"
	WeightingEV       = "ev"
)

// Profile is the configuration form of a Policy.
type Profile struct {
	Allow        []string           `yaml:"allow"`
	Deny         []string           `yaml:"deny"`
	Weighting    string             `yaml:"weighting"`
	ClassFactors map[string]float64 `yaml:"class_factors"`
	ClimbPenalty float64            `yaml:"climb_penalty"`
	RegenFactor  float64            `yaml:"regen_factor"`
}

// DefaultProfile routes DefaultRoadTags weighted by distance.
func DefaultProfile() Profile {
	return Profile{
		Allow:     append([]string(nil), DefaultRoadTags...),
		Weighting: WeightingDistance,
	}
}

// Policy builds the configured policy. terrain is only used by the "ev"
// weighting and may be nil.
func (p Profile) Policy(terrain elevation.Model) (Policy, error) {
	v := NewTags(p.Allow, p.Deny)
	switch p.Weighting {
	case WeightingUnit:
		return Combine(v, Unit{}), nil
	case WeightingDistance, "":
		return Combine(v, Distance{}), nil
	case WeightingEV:
		if terrain == nil {
			terrain = elevation.Flat{}
		}
		return Combine(v, EV{
			ClassFactors: p.ClassFactors,
			ClimbPenalty: p.ClimbPenalty,
			RegenFactor:  p.RegenFactor,
			Terrain:      terrain,
		}), nil
	default:
		return nil, fmt.Errorf("policy: unknown weighting %q", p.Weighting)
	}
}
