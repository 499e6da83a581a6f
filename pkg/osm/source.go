package osm

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
)

// ClassificationKey is the OSM tag whose value becomes Way.Tag.
const ClassificationKey = "highway"

// scanner is the subset shared by osmpbf.Scanner and osmxml.Scanner.
type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// Format selects the OSM encoding of a FileSource.
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

// Options configures how OSM ways are turned into Way records.
type Options struct {
	// SkipJunctions drops ways whose "junction" tag is in the list,
	// e.g. "roundabout".
	SkipJunctions []string
	// ForwardOnly ignores oneway semantics and emits every way in its
	// drawn direction only.
	ForwardOnly bool
	// Procs is the number of decoder goroutines for PBF input.
	Procs int
}

// FileSource streams an OSM extract twice: once for ways, once for nodes.
// The reader is rewound before every pass, so it must implement
// io.ReadSeeker.
type FileSource struct {
	rs     io.ReadSeeker
	format Format
	opt    Options
	skip   map[string]bool
}

// NewFileSource wraps rs. opts is optional.
func NewFileSource(rs io.ReadSeeker, format Format, opts ...Options) *FileSource {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Procs <= 0 {
		opt.Procs = runtime.GOMAXPROCS(0)
	}
	skip := make(map[string]bool, len(opt.SkipJunctions))
	for _, j := range opt.SkipJunctions {
		skip[j] = true
	}
	return &FileSource{rs: rs, format: format, opt: opt, skip: skip}
}

func (s *FileSource) open(ctx context.Context, ways bool) (scanner, error) {
	if _, err := s.rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	switch s.format {
	case FormatPBF:
		sc := osmpbf.New(ctx, s.rs, s.opt.Procs)
		sc.SkipRelations = true
		sc.SkipNodes = ways
		sc.SkipWays = !ways
		return sc, nil
	case FormatXML:
		return osmxml.New(ctx, s.rs), nil
	default:
		return nil, fmt.Errorf("unknown format %d", s.format)
	}
}

// ScanWays calls fn for every way that survives junction and direction
// filtering. Validity by classification is left to the caller's policy.
func (s *FileSource) ScanWays(ctx context.Context, fn func(Way) error) error {
	sc, err := s.open(ctx, true)
	if err != nil {
		return err
	}
	defer sc.Close()

	for sc.Scan() {
		w, ok := sc.Object().(*osm.Way)
		if !ok {
			continue
		}
		way, keep := s.convertWay(w)
		if !keep {
			continue
		}
		if err := fn(way); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ScanNodes calls fn for every node in the extract.
func (s *FileSource) ScanNodes(ctx context.Context, fn func(NodeRecord) error) error {
	sc, err := s.open(ctx, false)
	if err != nil {
		return err
	}
	defer sc.Close()

	for sc.Scan() {
		n, ok := sc.Object().(*osm.Node)
		if !ok {
			continue
		}
		if err := fn(NodeRecord{ID: int64(n.ID), Lon: n.Lon, Lat: n.Lat}); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (s *FileSource) convertWay(w *osm.Way) (Way, bool) {
	if len(w.Nodes) < 2 {
		return Way{}, false
	}
	if s.skip[w.Tags.Find("junction")] {
		return Way{}, false
	}

	fwd, bwd := true, false
	if !s.opt.ForwardOnly {
		fwd, bwd = directionFlags(w.Tags)
	}
	if !fwd && !bwd {
		return Way{}, false
	}

	ids := make([]int64, len(w.Nodes))
	for i, wn := range w.Nodes {
		ids[i] = int64(wn.ID)
	}
	if !fwd {
		// Reverse-only way: flip it so it can be emitted forward.
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	return Way{
		ID:            int64(w.ID),
		Tag:           w.Tags.Find(ClassificationKey),
		Nodes:         ids,
		Bidirectional: fwd && bwd,
	}, true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent; skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}
