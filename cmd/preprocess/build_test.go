package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eroute/pkg/graph"
)

const networkXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="100" lat="48.0000" lon="9.0000"/>
  <node id="200" lat="48.0010" lon="9.0000"/>
  <node id="300" lat="48.0010" lon="9.0010"/>
  <node id="400" lat="48.0020" lon="9.0010"/>
  <node id="999" lat="50.0000" lon="10.0000"/>
  <way id="1">
    <nd ref="100"/>
    <nd ref="200"/>
    <nd ref="300"/>
    <tag k="highway" v="motorway"/>
  </way>
  <way id="2">
    <nd ref="300"/>
    <nd ref="400"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="3">
    <nd ref="400"/>
    <nd ref="100"/>
    <tag k="highway" v="primary"/>
    <tag k="junction" v="roundabout"/>
  </way>
  <way id="4">
    <nd ref="200"/>
    <nd ref="400"/>
    <tag k="highway" v="secondary"/>
    <tag k="oneway" v="-1"/>
  </way>
  <way id="5">
    <nd ref="999"/>
    <nd ref="100"/>
    <tag k="highway" v="footway"/>
  </way>
</osm>`

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"europe/germany.osm.pbf", formatPBF, false},
		{"city.OSM", formatXML, false},
		{"extract.xml", formatXML, false},
		{"net.osrm", formatOSRM, false},
		{"graph.bin", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := detectFormat(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunXML(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "city.osm")
	output := filepath.Join(dir, "graph.bin")
	require.NoError(t, os.WriteFile(input, []byte(networkXML), 0o644))

	cmd := newRootCmd(zap.NewNop())
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "2"}))
	err := run(context.Background(), cmd, options{input: input, output: output, workers: 2}, zap.NewNop())
	require.NoError(t, err)

	p, err := graph.ReadFile(output)
	require.NoError(t, err)

	// The roundabout and the footway are dropped, so node 999 never appears.
	ids := make([]int64, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	assert.Equal(t, []int64{100, 200, 300, 400}, ids)
	assert.Len(t, p.Edges, 5)
}

func TestRunXMLNoRoads(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "paths.osm")
	output := filepath.Join(dir, "graph.bin")
	require.NoError(t, os.WriteFile(input, []byte(`<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="48.0000" lon="9.0000"/>
  <node id="2" lat="48.0010" lon="9.0000"/>
  <way id="1">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="footway"/>
  </way>
</osm>`), 0o644))

	cmd := newRootCmd(zap.NewNop())
	err := run(context.Background(), cmd, options{input: input, output: output}, zap.NewNop())
	assert.ErrorIs(t, err, graph.ErrEmptyGraph)
	assert.NoFileExists(t, output)
}

func TestRunSQL(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "net.db")
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	for _, s := range []string{
		`CREATE TABLE ways_vertices_pgr (id INTEGER PRIMARY KEY, lon REAL, lat REAL)`,
		`INSERT INTO ways_vertices_pgr VALUES (1, 0, 0), (2, 0, 1), (3, 5, 5)`,
		`CREATE TABLE ways (source INTEGER, target INTEGER, cost REAL, reverse_cost REAL)`,
		`INSERT INTO ways VALUES (1, 2, 1, 1)`,
	} {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	output := filepath.Join(dir, "graph.bin")
	cmd := newRootCmd(zap.NewNop())
	require.NoError(t, cmd.ParseFlags([]string{"--dsn", dsn, "--format", "sql"}))
	err = run(context.Background(), cmd, options{output: output, format: formatSQL, dsn: dsn}, zap.NewNop())
	require.NoError(t, err)

	p, err := graph.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 2, "isolated node 3 is outside the largest component")
	assert.Len(t, p.Edges, 2)
}

func TestRunSQLWithoutDSN(t *testing.T) {
	cmd := newRootCmd(zap.NewNop())
	err := run(context.Background(), cmd, options{output: filepath.Join(t.TempDir(), "g.bin"), format: formatSQL}, zap.NewNop())
	assert.Error(t, err)
}
