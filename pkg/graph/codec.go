package graph

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
)

const (
	magicBytes = "EROUTEGR"
	version    = uint32(1)
	maxNodes   = 200_000_000
	maxEdges   = 500_000_000
)

// fileHeader precedes the compressed body of a graph artifact.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
}

var headerSize = binary.Size(fileHeader{})

// Encode writes p as a graph artifact: a fixed header, a zlib stream holding
// the gob-encoded graph, and a CRC32 trailer over everything before it.
//
// Float fields decode to the same values, with one exception: gob omits zero
// fields, so a negative zero coordinate or weight decodes as positive zero.
func Encode(w io.Writer, p *Persisted) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(p.Nodes) > maxNodes || len(p.Edges) > maxEdges {
		return fmt.Errorf("graph too large: %d nodes, %d edges", len(p.Nodes), len(p.Edges))
	}

	cw := &crc32Writer{w: w, hash: crc32.NewIEEE()}
	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(len(p.Nodes)),
		NumEdges: uint32(len(p.Edges)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	zw, err := zlib.NewWriterLevel(cw, zlib.BestCompression)
	if err != nil {
		return fmt.Errorf("zlib writer: %w", err)
	}
	if err := gob.NewEncoder(zw).Encode(p); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush zlib: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, cw.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	return nil
}

// Decode reads an artifact written by Encode and validates the result.
func Decode(r io.Reader) (*Persisted, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("%w: artifact truncated (%d bytes)", ErrSourceFormat, len(data))
	}
	body := data[:len(data)-4]
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	if computed := crc32.ChecksumIEEE(body); computed != stored {
		return nil, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrSourceFormat, stored, computed)
	}

	br := bytes.NewReader(body)
	var hdr fileHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrSourceFormat, err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("%w: invalid magic bytes %q", ErrSourceFormat, hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSourceFormat, hdr.Version)
	}
	if hdr.NumNodes > maxNodes || hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("%w: counts exceed limits (%d nodes, %d edges)", ErrSourceFormat, hdr.NumNodes, hdr.NumEdges)
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %w", ErrSourceFormat, err)
	}
	defer zr.Close()

	var p Persisted
	if err := gob.NewDecoder(zr).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode graph: %w", ErrSourceFormat, err)
	}
	if uint32(len(p.Nodes)) != hdr.NumNodes || uint32(len(p.Edges)) != hdr.NumEdges {
		return nil, fmt.Errorf("%w: header says %d nodes, %d edges; body has %d, %d",
			ErrSourceFormat, hdr.NumNodes, hdr.NumEdges, len(p.Nodes), len(p.Edges))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// WriteFile encodes p to path through a temporary file and an atomic rename.
func WriteFile(path string, p *Persisted) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	if err := Encode(f, p); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadFile decodes the artifact at path.
func ReadFile(path string) (*Persisted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Load reads the artifact at path and builds the runtime graph.
func Load(path string) (*Graph, error) {
	p, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(p)
}

type crc32Writer struct {
	w    io.Writer
	hash hash.Hash32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}
