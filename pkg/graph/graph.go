// Package graph holds the road-network model: the persisted node and edge
// lists, the runtime Graph with its spatial index and adjacency, and the
// ways of producing one (OSM build, native artifact, OSRM layout, SQL).
package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"eroute/pkg/spatial"
)

var (
	// ErrSourceFormat reports input that could not be decoded.
	ErrSourceFormat = errors.New("malformed source data")
	// ErrInvariant reports an edge endpoint that does not name a node.
	ErrInvariant = errors.New("graph invariant violated")
	// ErrEmptyGraph is returned when a graph without nodes is built, loaded
	// or encoded.
	ErrEmptyGraph = errors.New("graph has no nodes")
	// ErrInvalidWeight reports a NaN or infinite edge weight.
	ErrInvalidWeight = errors.New("invalid edge weight")
)

// Node is a network vertex. Its position in Persisted.Nodes is its dense
// index.
type Node struct {
	ID  int64
	Lon float64
	Lat float64
}

// Point returns the node position (X = lon, Y = lat).
func (n Node) Point() orb.Point {
	return orb.Point{n.Lon, n.Lat}
}

// Edge is a directed, weighted connection between two dense node indices.
// Parallel edges are allowed and negative weights are kept as is.
type Edge struct {
	Source uint32
	Target uint32
	Weight float32
	Tag    string
}

// Persisted is the serializable part of a graph.
type Persisted struct {
	Nodes []Node
	Edges []Edge
}

// Validate checks that the graph has nodes, every edge endpoint is a valid
// dense index and every weight is finite.
func (p *Persisted) Validate() error {
	if len(p.Nodes) == 0 {
		return ErrEmptyGraph
	}
	n := uint32(len(p.Nodes))
	for i, e := range p.Edges {
		if e.Source >= n || e.Target >= n {
			return fmt.Errorf("%w: edge %d (%d->%d) with %d nodes", ErrInvariant, i, e.Source, e.Target, n)
		}
		if w := float64(e.Weight); math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: edge %d has weight %v", ErrInvalidWeight, i, e.Weight)
		}
	}
	return nil
}

// Graph is the queryable form of a Persisted graph. It is immutable after
// New and safe for concurrent readers.
type Graph struct {
	nodes []Node
	edges []Edge

	index *spatial.Index
	byID  map[int64]uint32

	// firstOut[u]..firstOut[u+1] index into adjEdge for the edges leaving u.
	firstOut []uint32
	adjEdge  []uint32

	negative bool
}

// New validates p and derives the spatial index, the external id lookup and
// the outgoing adjacency. If two nodes share an external id the first one is
// kept in the lookup.
func New(p *Persisted) (*Graph, error) {
	if p == nil {
		return nil, ErrEmptyGraph
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := &Graph{
		nodes: p.Nodes,
		edges: p.Edges,
		index: spatial.New(),
		byID:  make(map[int64]uint32, len(p.Nodes)),
	}
	for i, n := range p.Nodes {
		g.index.Insert(n.Point(), n.ID)
		if _, dup := g.byID[n.ID]; !dup {
			g.byID[n.ID] = uint32(i)
		}
	}

	numNodes := uint32(len(p.Nodes))
	g.firstOut = make([]uint32, numNodes+1)
	for _, e := range p.Edges {
		g.firstOut[e.Source+1]++
		if e.Weight < 0 {
			g.negative = true
		}
	}
	for i := uint32(1); i <= numNodes; i++ {
		g.firstOut[i] += g.firstOut[i-1]
	}
	pos := make([]uint32, numNodes)
	copy(pos, g.firstOut[:numNodes])
	g.adjEdge = make([]uint32, len(p.Edges))
	for i, e := range p.Edges {
		g.adjEdge[pos[e.Source]] = uint32(i)
		pos[e.Source]++
	}
	return g, nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns the node at dense index i.
func (g *Graph) Node(i uint32) Node { return g.nodes[i] }

// Edges returns the edge list. Callers must not modify it.
func (g *Graph) Edges() []Edge { return g.edges }

// EdgesFrom returns the indices into Edges of the edges leaving u.
func (g *Graph) EdgesFrom(u uint32) []uint32 {
	return g.adjEdge[g.firstOut[u]:g.firstOut[u+1]]
}

// Lookup maps an external node id to its dense index.
func (g *Graph) Lookup(id int64) (uint32, bool) {
	i, ok := g.byID[id]
	return i, ok
}

// Nearest returns the external id of the node closest to p.
func (g *Graph) Nearest(p orb.Point) (int64, bool) {
	return g.index.Nearest(p)
}

// HasNegativeWeights reports whether any edge weight is below zero.
func (g *Graph) HasNegativeWeights() bool { return g.negative }
