package graph

// components tracks weakly connected components of the node set. Merges
// attach the smaller set under the larger one and lookups halve paths.
type components struct {
	parent []uint32
	size   []uint32
}

func newComponents(n uint32) *components {
	c := &components{parent: make([]uint32, n), size: make([]uint32, n)}
	for i := range n {
		c.parent[i] = i
		c.size[i] = 1
	}
	return c
}

func (c *components) root(x uint32) uint32 {
	for c.parent[x] != x {
		c.parent[x] = c.parent[c.parent[x]]
		x = c.parent[x]
	}
	return x
}

// connect joins the components of an edge's endpoints.
func (c *components) connect(e Edge) {
	a, b := c.root(e.Source), c.root(e.Target)
	if a == b {
		return
	}
	if c.size[a] < c.size[b] {
		a, b = b, a
	}
	c.parent[b] = a
	c.size[a] += c.size[b]
}

// largest returns the root and size of the biggest component, preferring
// the one reached first in index order.
func (c *components) largest() (root, size uint32) {
	for i := range uint32(len(c.parent)) {
		if r := c.root(i); c.size[r] > size {
			root, size = r, c.size[r]
		}
	}
	return root, size
}

// LargestComponent returns a copy of p restricted to its largest weakly
// connected component. Surviving nodes keep their relative order and are
// re-keyed densely; edges keep their relative order. On equal sizes the
// component containing the lowest node index wins.
func LargestComponent(p *Persisted) *Persisted {
	numNodes := uint32(len(p.Nodes))
	if numNodes == 0 {
		return &Persisted{}
	}

	comp := newComponents(numNodes)
	for _, e := range p.Edges {
		comp.connect(e)
	}
	bestRoot, bestSize := comp.largest()

	const dropped = ^uint32(0)
	oldToNew := make([]uint32, numNodes)
	nodes := make([]Node, 0, bestSize)
	for i := range numNodes {
		if comp.root(i) != bestRoot {
			oldToNew[i] = dropped
			continue
		}
		oldToNew[i] = uint32(len(nodes))
		nodes = append(nodes, p.Nodes[i])
	}

	edges := make([]Edge, 0, len(p.Edges))
	for _, e := range p.Edges {
		s, t := oldToNew[e.Source], oldToNew[e.Target]
		if s == dropped || t == dropped {
			continue
		}
		e.Source, e.Target = s, t
		edges = append(edges, e)
	}
	return &Persisted{Nodes: nodes, Edges: edges}
}
