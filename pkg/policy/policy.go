// Package policy holds the pluggable edge validity and weight computations
// the graph builder calls for every road segment.
//
// Both computations must be pure: the builder may call them from several
// goroutines and in any order.
package policy

import (
	"github.com/paulmach/orb"
)

// Validator decides whether a segment with the given classification tag
// becomes graph edges.
type Validator interface {
	Valid(tag string) bool
}

// Weighter computes the traversal cost of one edge. distance is the
// great-circle distance between the endpoints in meters.
type Weighter interface {
	Weight(tag string, distance float64, from, to orb.Point) float64
}

// Policy is the two-slot profile the builder is configured with.
type Policy interface {
	Validator
	Weighter
}

type combined struct {
	Validator
	Weighter
}

// Combine joins a validator and a weighter into a Policy.
func Combine(v Validator, w Weighter) Policy {
	return combined{Validator: v, Weighter: w}
}

// Funcs adapts plain functions to Policy. A nil ValidFunc accepts every
// tag; a nil WeightFunc weighs by distance.
type Funcs struct {
	ValidFunc  func(tag string) bool
	WeightFunc func(tag string, distance float64, from, to orb.Point) float64
}

func (f Funcs) Valid(tag string) bool {
	if f.ValidFunc == nil {
		return true
	}
	return f.ValidFunc(tag)
}

func (f Funcs) Weight(tag string, distance float64, from, to orb.Point) float64 {
	if f.WeightFunc == nil {
		return distance
	}
	return f.WeightFunc(tag, distance, from, to)
}

// DefaultRoadTags are the highway classes routed by default.
var DefaultRoadTags = []string{
	"motorway", "trunk", "primary", "secondary", "tertiary",
	"unclassified", "residential", "service", "motorway_link", "trunk_link",
	"primary_link", "secondary_link", "tertiary_link",
}

// Tags is a static allow/deny list validator. Deny wins over allow. With an
// empty allow list every non-empty tag not denied is valid.
type Tags struct {
	allow map[string]bool
	deny  map[string]bool
}

// NewTags builds a Tags validator.
func NewTags(allow, deny []string) Tags {
	t := Tags{allow: make(map[string]bool, len(allow)), deny: make(map[string]bool, len(deny))}
	for _, a := range allow {
		t.allow[a] = true
	}
	for _, d := range deny {
		t.deny[d] = true
	}
	return t
}

func (t Tags) Valid(tag string) bool {
	if tag == "" || t.deny[tag] {
		return false
	}
	if len(t.allow) == 0 {
		return true
	}
	return t.allow[tag]
}

// Unit weighs every segment 1.0.
type Unit struct{}

func (Unit) Weight(string, float64, orb.Point, orb.Point) float64 { return 1 }

// Distance weighs a segment by its length in meters.
type Distance struct{}

func (Distance) Weight(_ string, distance float64, _, _ orb.Point) float64 { return distance }
