package graph

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"eroute/pkg/geo"
	"eroute/pkg/osm"
	"eroute/pkg/policy"
)

// Source yields the raw records of a road network. ScanWays and ScanNodes
// are each called once, ways first.
type Source interface {
	ScanWays(ctx context.Context, fn func(osm.Way) error) error
	ScanNodes(ctx context.Context, fn func(osm.NodeRecord) error) error
}

// Build stages reported to a ProgressFunc.
const (
	StageWays      = "ways"
	StageNodes     = "nodes"
	StageEdges     = "edges"
	StageComponent = "component"
)

// ProgressFunc receives the number of records a build stage produced.
type ProgressFunc func(stage string, count int)

type buildConfig struct {
	progress ProgressFunc
	workers  int
	largest  bool
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) BuildOption {
	return func(c *buildConfig) { c.progress = fn }
}

// WithWorkers sets the number of goroutines used to weigh edges.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLargestComponent keeps only the largest weakly connected component.
func WithLargestComponent() BuildOption {
	return func(c *buildConfig) { c.largest = true }
}

// candidate is an edge before its endpoints are re-keyed.
type candidate struct {
	from, to int64
	tag      string
}

// Build turns the ways and nodes of src into a graph.
//
// Ways rejected by pol.Valid are skipped. Every consecutive node pair of an
// accepted way becomes a directed edge, plus the reverse edge for
// bidirectional ways. Only nodes referenced by an accepted way are kept, in
// first-seen order. A referenced node missing from src fails the build with
// ErrInvariant.
func Build(ctx context.Context, src Source, pol policy.Policy, opts ...BuildOption) (*Persisted, error) {
	cfg := buildConfig{
		progress: func(string, int) {},
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(&cfg)
	}

	// Pass 1: edge candidates and the set of nodes they touch.
	var cands []candidate
	important := make(map[int64]struct{})
	ways := 0
	err := src.ScanWays(ctx, func(w osm.Way) error {
		if len(w.Nodes) < 2 || !pol.Valid(w.Tag) {
			return nil
		}
		ways++
		for i := 1; i < len(w.Nodes); i++ {
			a, b := w.Nodes[i-1], w.Nodes[i]
			cands = append(cands, candidate{from: a, to: b, tag: w.Tag})
			if w.Bidirectional {
				cands = append(cands, candidate{from: b, to: a, tag: w.Tag})
			}
			important[a] = struct{}{}
			important[b] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, scanError(ctx, "ways", err)
	}
	cfg.progress(StageWays, ways)

	// Pass 2: coordinates of the important nodes.
	nodes := make([]Node, 0, len(important))
	dense := make(map[int64]uint32, len(important))
	err = src.ScanNodes(ctx, func(n osm.NodeRecord) error {
		if _, ok := important[n.ID]; !ok {
			return nil
		}
		if _, dup := dense[n.ID]; dup {
			return nil
		}
		dense[n.ID] = uint32(len(nodes))
		nodes = append(nodes, Node{ID: n.ID, Lon: n.Lon, Lat: n.Lat})
		return nil
	})
	if err != nil {
		return nil, scanError(ctx, "nodes", err)
	}
	cfg.progress(StageNodes, len(nodes))

	// Pass 3: re-key and weigh. Chunks write disjoint ranges of edges.
	edges := make([]Edge, len(cands))
	if len(cands) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		chunk := (len(cands) + cfg.workers - 1) / cfg.workers
		for start := 0; start < len(cands); start += chunk {
			end := min(start+chunk, len(cands))
			g.Go(func() error {
				return weighChunk(gctx, pol, cands[start:end], edges[start:end], nodes, dense)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	cfg.progress(StageEdges, len(edges))

	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no way passed the policy", ErrEmptyGraph)
	}

	p := &Persisted{Nodes: nodes, Edges: edges}
	if cfg.largest {
		p = LargestComponent(p)
		cfg.progress(StageComponent, len(p.Nodes))
	}
	return p, nil
}

func weighChunk(ctx context.Context, pol policy.Policy, cands []candidate, out []Edge, nodes []Node, dense map[int64]uint32) error {
	for i, c := range cands {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s, ok := dense[c.from]
		if !ok {
			return fmt.Errorf("%w: node %d referenced by a way has no record", ErrInvariant, c.from)
		}
		t, ok := dense[c.to]
		if !ok {
			return fmt.Errorf("%w: node %d referenced by a way has no record", ErrInvariant, c.to)
		}
		from, to := nodes[s].Point(), nodes[t].Point()
		w := float32(pol.Weight(c.tag, geo.Distance(from, to), from, to))
		if f := float64(w); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %d->%d (%s) weighs %v", ErrInvalidWeight, c.from, c.to, c.tag, w)
		}
		out[i] = Edge{Source: s, Target: t, Weight: w, Tag: c.tag}
	}
	return nil
}

func scanError(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: scan %s: %w", ErrSourceFormat, what, err)
}
