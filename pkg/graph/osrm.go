package graph

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// osrmHeaderSize is the length of the fingerprint block that opens an
// OSRM-style road network file.
const osrmHeaderSize = 152

// osrmNode is one fixed-size node record. Coordinates are micro-degrees.
type osrmNode struct {
	Lon int32
	Lat int32
	ID  uint64
	_   [8]byte
}

// osrmEdge is one fixed-size edge record.
type osrmEdge struct {
	Source uint32
	Target uint32
	_      [4]byte
	Weight uint32
	_      [8]byte
}

type osrmConfig struct {
	scale float64
}

// OSRMOption configures DecodeOSRM.
type OSRMOption func(*osrmConfig)

// WithWeightScale multiplies every raw edge weight by scale.
func WithWeightScale(scale float64) OSRMOption {
	return func(c *osrmConfig) { c.scale = scale }
}

// DecodeOSRM reads the fixed little-endian OSRM layout: a 152-byte header,
// a uint32 node count and node records, a uint32 edge count and edge
// records. Edge endpoints are dense node positions.
func DecodeOSRM(r io.Reader, opts ...OSRMOption) (*Persisted, error) {
	cfg := osrmConfig{scale: 1}
	for _, o := range opts {
		o(&cfg)
	}
	br := bufio.NewReaderSize(r, 64*1024)

	if err := skipBytes(br, osrmHeaderSize); err != nil {
		return nil, osrmError("header", err)
	}

	var numNodes uint32
	if err := binary.Read(br, binary.LittleEndian, &numNodes); err != nil {
		return nil, osrmError("node count", err)
	}
	if numNodes > maxNodes {
		return nil, fmt.Errorf("%w: node count %d exceeds limit %d", ErrSourceFormat, numNodes, maxNodes)
	}
	nodes := make([]Node, 0, min(numNodes, 1<<20))
	for i := range numNodes {
		var rec osrmNode
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, osrmError(fmt.Sprintf("node %d", i), err)
		}
		if rec.ID > math.MaxInt64 {
			return nil, fmt.Errorf("%w: node %d id %d out of range", ErrSourceFormat, i, rec.ID)
		}
		nodes = append(nodes, Node{
			ID:  int64(rec.ID),
			Lon: float64(rec.Lon) / 1e6,
			Lat: float64(rec.Lat) / 1e6,
		})
	}

	var numEdges uint32
	if err := binary.Read(br, binary.LittleEndian, &numEdges); err != nil {
		return nil, osrmError("edge count", err)
	}
	if numEdges > maxEdges {
		return nil, fmt.Errorf("%w: edge count %d exceeds limit %d", ErrSourceFormat, numEdges, maxEdges)
	}
	edges := make([]Edge, 0, min(numEdges, 1<<20))
	for i := range numEdges {
		var rec osrmEdge
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, osrmError(fmt.Sprintf("edge %d", i), err)
		}
		if rec.Source >= numNodes || rec.Target >= numNodes {
			return nil, fmt.Errorf("%w: edge %d (%d->%d) with %d nodes", ErrInvariant, i, rec.Source, rec.Target, numNodes)
		}
		edges = append(edges, Edge{
			Source: rec.Source,
			Target: rec.Target,
			Weight: float32(float64(rec.Weight) * cfg.scale),
		})
	}

	p := &Persisted{Nodes: nodes, Edges: edges}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadOSRM decodes the OSRM-style file at path.
func ReadOSRM(path string, opts ...OSRMOption) (*Persisted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return DecodeOSRM(f, opts...)
}

// LoadOSRM reads an OSRM-style file and builds the runtime graph.
func LoadOSRM(path string, opts ...OSRMOption) (*Graph, error) {
	p, err := ReadOSRM(path, opts...)
	if err != nil {
		return nil, err
	}
	return New(p)
}

func osrmError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated at %s", ErrSourceFormat, what)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

// skipBytes reads and discards n bytes from r.
func skipBytes(r io.Reader, n int) error {
	var buf [32 * 1024]byte
	for n > 0 {
		toRead := min(n, len(buf))
		if _, err := io.ReadFull(r, buf[:toRead]); err != nil {
			return err
		}
		n -= toRead
	}
	return nil
}
