package graph

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T, stmts ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return db
}

func TestLoadSQL(t *testing.T) {
	db := openTestDB(t,
		`CREATE TABLE ways_vertices_pgr (id INTEGER PRIMARY KEY, lon REAL, lat REAL)`,
		`INSERT INTO ways_vertices_pgr VALUES (2, 0.0, 1.0), (1, 0.0, 0.0), (3, 1.0, 1.0)`,
		`CREATE TABLE ways (source INTEGER, target INTEGER, cost REAL, reverse_cost REAL)`,
		`INSERT INTO ways VALUES (1, 2, 1.5, 2.5), (2, 3, 4.0, -1.0)`,
	)

	p, err := LoadSQL(context.Background(), db, DefaultSQLTables())
	require.NoError(t, err)

	require.Len(t, p.Nodes, 3)
	assert.Equal(t, Node{ID: 1, Lon: 0, Lat: 0}, p.Nodes[0])
	assert.Equal(t, Node{ID: 2, Lon: 0, Lat: 1}, p.Nodes[1])
	assert.Equal(t, Node{ID: 3, Lon: 1, Lat: 1}, p.Nodes[2])

	assert.Equal(t, []Edge{
		{Source: 0, Target: 1, Weight: 1.5},
		{Source: 1, Target: 0, Weight: 2.5},
		{Source: 1, Target: 2, Weight: 4},
		{Source: 2, Target: 1, Weight: -1},
	}, p.Edges)
}

func TestLoadSQLEmpty(t *testing.T) {
	db := openTestDB(t,
		`CREATE TABLE ways_vertices_pgr (id INTEGER PRIMARY KEY, lon REAL, lat REAL)`,
		`CREATE TABLE ways (source INTEGER, target INTEGER, cost REAL, reverse_cost REAL)`,
	)
	_, err := LoadSQL(context.Background(), db, DefaultSQLTables())
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestLoadSQLUnknownNode(t *testing.T) {
	db := openTestDB(t,
		`CREATE TABLE v (id INTEGER, lon REAL, lat REAL)`,
		`INSERT INTO v VALUES (1, 0, 0)`,
		`CREATE TABLE e (source INTEGER, target INTEGER, w REAL, rw REAL)`,
		`INSERT INTO e VALUES (1, 9, 1, 1)`,
	)
	_, err := LoadSQL(context.Background(), db, SQLTables{Nodes: "v", Edges: "e", Weight: "w", ReverseWeight: "rw"})
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestSQLTablesValidate(t *testing.T) {
	assert.NoError(t, DefaultSQLTables().Validate())
	assert.NoError(t, SQLTables{Nodes: "public.v", Edges: "e", Weight: "w", ReverseWeight: "rw"}.Validate())

	bad := DefaultSQLTables()
	bad.Edges = "ways; DROP TABLE ways"
	assert.Error(t, bad.Validate())

	db := openTestDB(t)
	_, err := LoadSQL(context.Background(), db, bad)
	assert.Error(t, err)
}
