package routing

import (
	"context"
	"math"

	"eroute/pkg/graph"
)

var (
	// Unreachable is the distance of nodes the search never reached.
	Unreachable = float32(math.Inf(1))
	// NoNode as a Dijkstra target computes the full shortest-path tree.
	NoNode = ^uint32(0)
)

// ShortestPaths is the single-source result of a search. Pred of the source
// and of unreached nodes is the node itself.
type ShortestPaths struct {
	Source uint32
	Dist   []float32
	Pred   []uint32
	// Passes is the number of relaxation passes Bellman-Ford ran.
	Passes int
	// Converged is false when Bellman-Ford hit its pass limit, which means
	// the graph has a negative cycle reachable from Source and Dist is an
	// approximation.
	Converged bool
}

func newShortestPaths(n int, src uint32) *ShortestPaths {
	sp := &ShortestPaths{
		Source: src,
		Dist:   make([]float32, n),
		Pred:   make([]uint32, n),
	}
	for i := range sp.Dist {
		sp.Dist[i] = Unreachable
		sp.Pred[i] = uint32(i)
	}
	sp.Dist[src] = 0
	return sp
}

// Reached reports whether node i has a finite distance.
func (sp *ShortestPaths) Reached(i uint32) bool {
	return !math.IsInf(float64(sp.Dist[i]), 1)
}

func bellmanFord(ctx context.Context, g *graph.Graph, src uint32) (*ShortestPaths, error) {
	sp := newShortestPaths(g.NodeCount(), src)
	edges := g.Edges()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		improved := false
		for _, e := range edges {
			d := sp.Dist[e.Source]
			if math.IsInf(float64(d), 1) {
				continue
			}
			if nd := d + e.Weight; nd < sp.Dist[e.Target] {
				sp.Dist[e.Target] = nd
				sp.Pred[e.Target] = e.Source
				improved = true
			}
		}
		sp.Passes++
		if !improved {
			sp.Converged = true
			return sp, nil
		}
		if sp.Passes > len(edges) {
			return sp, nil
		}
	}
}

func dijkstra(ctx context.Context, g *graph.Graph, src, target uint32, bound float32) (*ShortestPaths, error) {
	sp := newShortestPaths(g.NodeCount(), src)
	sp.Converged = true
	edges := g.Edges()

	var pq MinHeap
	pq.Push(src, 0)
	iterations := 0
	for pq.Len() > 0 {
		item := pq.Pop()
		if item.Cost > sp.Dist[item.Node] {
			continue
		}
		if item.Node == target || item.Cost > bound {
			break
		}

		iterations++
		if iterations%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for _, ei := range g.EdgesFrom(item.Node) {
			e := edges[ei]
			if nd := item.Cost + e.Weight; nd < sp.Dist[e.Target] {
				sp.Dist[e.Target] = nd
				sp.Pred[e.Target] = item.Node
				pq.Push(e.Target, nd)
			}
		}
	}
	sp.Passes = 1
	return sp, nil
}
