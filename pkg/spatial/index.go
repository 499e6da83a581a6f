// Package spatial provides the nearest-neighbour index used to translate a
// raw coordinate into a graph node identifier.
package spatial

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// entry is what the R-tree stores for each inserted point.
type entry struct {
	id  int64
	seq uint32 // insertion order, used to break distance ties
}

// Index is a 2-D nearest-neighbour index over (lon, lat) points.
//
// Distances are Euclidean in degree space. When several points are equally
// close to the query, the one inserted first wins. Dense urban grids produce
// such ties often, so the rule is part of the contract.
//
// Insert must not be called concurrently with anything else. Once built, the
// index is safe for concurrent Nearest calls.
type Index struct {
	tr rtree.RTreeG[entry]
	n  uint32
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Insert adds a point with its external identifier.
func (ix *Index) Insert(p orb.Point, id int64) {
	pt := [2]float64{p.Lon(), p.Lat()}
	ix.tr.Insert(pt, pt, entry{id: id, seq: ix.n})
	ix.n++
}

// Len returns the number of inserted points.
func (ix *Index) Len() int {
	return ix.tr.Len()
}

// Nearest returns the external identifier of the point closest to p.
// ok is false when the index is empty.
func (ix *Index) Nearest(p orb.Point) (id int64, ok bool) {
	target := [2]float64{p.Lon(), p.Lat()}

	var (
		best     entry
		bestDist float64
	)
	ix.tr.Nearby(
		rtree.BoxDist[float64, entry](target, target, nil),
		func(_, _ [2]float64, e entry, dist float64) bool {
			if !ok {
				best, bestDist, ok = e, dist, true
				return true
			}
			// Nearby yields in non-decreasing distance order; keep draining
			// the tied run to find the earliest insertion.
			if dist > bestDist {
				return false
			}
			if e.seq < best.seq {
				best = e
			}
			return true
		},
	)
	return best.id, ok
}
