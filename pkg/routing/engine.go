// Package routing answers shortest-path and reachability queries over an
// immutable graph.
package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"

	"eroute/pkg/graph"
)

// ErrNotFound is returned when a coordinate or node id cannot be resolved.
var ErrNotFound = errors.New("node not found")

// Algorithm selects the single-source search used by queries.
type Algorithm int

const (
	// BellmanFord handles negative edge weights.
	BellmanFord Algorithm = iota
	// Dijkstra requires non-negative weights.
	Dijkstra
)

func (a Algorithm) String() string {
	switch a {
	case BellmanFord:
		return "bellman-ford"
	case Dijkstra:
		return "dijkstra"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "bellman-ford", "bellmanford", "":
		return BellmanFord, nil
	case "dijkstra":
		return Dijkstra, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithAlgorithm selects the search algorithm. Dijkstra is ignored for
// graphs with negative weights.
func WithAlgorithm(a Algorithm) Option {
	return func(e *Engine) { e.algo = a }
}

// Engine runs queries against a graph. It keeps no per-query state and is
// safe for concurrent use.
type Engine struct {
	g    *graph.Graph
	algo Algorithm
}

// NewEngine creates an engine over g.
func NewEngine(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{g: g, algo: BellmanFord}
	for _, o := range opts {
		o(e)
	}
	if e.algo == Dijkstra && g.HasNegativeWeights() {
		e.algo = BellmanFord
	}
	return e
}

// Algorithm returns the algorithm queries use.
func (e *Engine) Algorithm() Algorithm { return e.algo }

// Graph returns the underlying graph.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Resolve returns the external id of the node nearest to p.
func (e *Engine) Resolve(p orb.Point) (int64, error) {
	id, ok := e.g.Nearest(p)
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

// ResolveInternal maps an external id to its dense index.
func (e *Engine) ResolveInternal(id int64) (uint32, error) {
	i, ok := e.g.Lookup(id)
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return i, nil
}

// BellmanFord computes distances from src to every node. Relaxation passes
// repeat until nothing improves. If a pass still improves after more passes
// than there are edges, the search stops with Converged set to false.
func (e *Engine) BellmanFord(ctx context.Context, src uint32) (*ShortestPaths, error) {
	return bellmanFord(ctx, e.g, src)
}

// Dijkstra computes distances from src. It stops once target is settled
// (use NoNode for the whole tree) or the frontier cost exceeds bound.
// Weights must be non-negative.
func (e *Engine) Dijkstra(ctx context.Context, src, target uint32, bound float32) (*ShortestPaths, error) {
	return dijkstra(ctx, e.g, src, target, bound)
}

func (e *Engine) search(ctx context.Context, src, target uint32, bound float32) (*ShortestPaths, error) {
	if e.algo == Dijkstra {
		return dijkstra(ctx, e.g, src, target, bound)
	}
	return bellmanFord(ctx, e.g, src)
}

// RouteResult is the answer to a route query. When the target is not
// reachable Reached is false, Cost is Unreachable and Path holds just the
// two endpoints.
type RouteResult struct {
	Path      orb.LineString
	NodeIDs   []int64
	Cost      float32
	Reached   bool
	Converged bool
}

// Route finds the cheapest path between two nodes given by external id.
func (e *Engine) Route(ctx context.Context, sourceID, targetID int64) (*RouteResult, error) {
	s, err := e.ResolveInternal(sourceID)
	if err != nil {
		return nil, err
	}
	t, err := e.ResolveInternal(targetID)
	if err != nil {
		return nil, err
	}

	if s == t {
		n := e.g.Node(s)
		return &RouteResult{
			Path:      orb.LineString{n.Point()},
			NodeIDs:   []int64{n.ID},
			Reached:   true,
			Converged: true,
		}, nil
	}

	sp, err := e.search(ctx, s, t, Unreachable)
	if err != nil {
		return nil, err
	}

	if !sp.Reached(t) {
		src, dst := e.g.Node(s), e.g.Node(t)
		return &RouteResult{
			Path:      orb.LineString{src.Point(), dst.Point()},
			NodeIDs:   []int64{src.ID, dst.ID},
			Cost:      Unreachable,
			Converged: sp.Converged,
		}, nil
	}

	// Walk predecessors back from the target. A negative cycle can make the
	// chain loop, so the walk is capped and then jumps to the source.
	path := []uint32{t}
	limit := e.g.EdgeCount()
	for cur, steps := t, 0; cur != s; steps++ {
		if steps >= limit {
			path = append(path, s)
			break
		}
		cur = sp.Pred[cur]
		path = append(path, cur)
	}
	slices.Reverse(path)

	res := &RouteResult{
		Path:      make(orb.LineString, len(path)),
		NodeIDs:   make([]int64, len(path)),
		Cost:      sp.Dist[t],
		Reached:   true,
		Converged: sp.Converged,
	}
	for i, idx := range path {
		n := e.g.Node(idx)
		res.Path[i] = n.Point()
		res.NodeIDs[i] = n.ID
	}
	return res, nil
}

// RouteCoords resolves both coordinates to their nearest nodes and routes
// between them.
func (e *Engine) RouteCoords(ctx context.Context, from, to orb.Point) (*RouteResult, error) {
	s, err := e.Resolve(from)
	if err != nil {
		return nil, err
	}
	t, err := e.Resolve(to)
	if err != nil {
		return nil, err
	}
	return e.Route(ctx, s, t)
}

// Reach is a node within the travel budget of a reachability query.
type Reach struct {
	NodeID    int64
	Point     orb.Point
	Remaining float32
}

// Reachable returns every node whose distance from sourceID is at most
// capacity, in dense index order, with the budget left on arrival.
func (e *Engine) Reachable(ctx context.Context, sourceID int64, capacity float32) ([]Reach, error) {
	s, err := e.ResolveInternal(sourceID)
	if err != nil {
		return nil, err
	}
	sp, err := e.search(ctx, s, NoNode, capacity)
	if err != nil {
		return nil, err
	}

	var out []Reach
	for i, d := range sp.Dist {
		if !sp.Reached(uint32(i)) || d > capacity {
			continue
		}
		n := e.g.Node(uint32(i))
		out = append(out, Reach{NodeID: n.ID, Point: n.Point(), Remaining: capacity - d})
	}
	return out, nil
}

// ReachableCoords resolves from to its nearest node and runs Reachable.
func (e *Engine) ReachableCoords(ctx context.Context, from orb.Point, capacity float32) ([]Reach, error) {
	s, err := e.Resolve(from)
	if err != nil {
		return nil, err
	}
	return e.Reachable(ctx, s, capacity)
}
