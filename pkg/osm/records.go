package osm

import "context"

// Way is a road segment: an ordered list of external node references plus
// the classification tag the validity and weight policies look at.
type Way struct {
	ID    int64
	Tag   string
	Nodes []int64

	// Bidirectional ways also produce the reverse edge for every
	// consecutive node pair.
	Bidirectional bool
}

// NodeRecord is a point record from the source.
type NodeRecord struct {
	ID  int64
	Lon float64
	Lat float64
}

// MemorySource serves ways and nodes from slices. Useful for tests and for
// callers that already hold a decoded network.
type MemorySource struct {
	Ways  []Way
	Nodes []NodeRecord
}

// ScanWays calls fn for every way in order.
func (m *MemorySource) ScanWays(ctx context.Context, fn func(Way) error) error {
	for _, w := range m.Ways {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
	}
	return nil
}

// ScanNodes calls fn for every node in order.
func (m *MemorySource) ScanNodes(ctx context.Context, fn func(NodeRecord) error) error {
	for _, n := range m.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}
