package graph

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// SQLTables names the relational source of a graph. Node rows carry
// (id, lon, lat); edge rows carry (source, target, weight, reverse weight)
// where source and target are node ids.
type SQLTables struct {
	Nodes         string `yaml:"nodes"`
	Edges         string `yaml:"edges"`
	Weight        string `yaml:"weight"`
	ReverseWeight string `yaml:"reverse_weight"`
}

// DefaultSQLTables follows the pgRouting naming.
func DefaultSQLTables() SQLTables {
	return SQLTables{
		Nodes:         "ways_vertices_pgr",
		Edges:         "ways",
		Weight:        "cost",
		ReverseWeight: "reverse_cost",
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Validate rejects names that are not plain SQL identifiers.
func (t SQLTables) Validate() error {
	for _, id := range []string{t.Nodes, t.Edges, t.Weight, t.ReverseWeight} {
		if !identRe.MatchString(id) {
			return fmt.Errorf("invalid SQL identifier %q", id)
		}
	}
	return nil
}

// LoadSQL reads a graph from db. Nodes are ordered by id and take their row
// position as dense index. Every edge row yields a forward edge with the
// weight column and a backward edge with the reverse weight column. An edge
// naming an unknown node id fails with ErrInvariant.
func LoadSQL(ctx context.Context, db *sql.DB, t SQLTables) (*Persisted, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT id, lon, lat FROM %s ORDER BY id", t.Nodes))
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	var nodes []Node
	dense := make(map[int64]uint32)
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Lon, &n.Lat); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan node row: %w", ErrSourceFormat, err)
		}
		if _, dup := dense[n.ID]; !dup {
			dense[n.ID] = uint32(len(nodes))
		}
		nodes = append(nodes, n)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}

	rows, err = db.QueryContext(ctx, fmt.Sprintf("SELECT source, target, %s, %s FROM %s", t.Weight, t.ReverseWeight, t.Edges))
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	var edges []Edge
	for rows.Next() {
		var src, tgt int64
		var w, rw float64
		if err := rows.Scan(&src, &tgt, &w, &rw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan edge row: %w", ErrSourceFormat, err)
		}
		s, ok := dense[src]
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("%w: edge source %d is not a node id", ErrInvariant, src)
		}
		d, ok := dense[tgt]
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("%w: edge target %d is not a node id", ErrInvariant, tgt)
		}
		edges = append(edges,
			Edge{Source: s, Target: d, Weight: float32(w)},
			Edge{Source: d, Target: s, Weight: float32(rw)},
		)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("read edges: %w", err)
	}

	p := &Persisted{Nodes: nodes, Edges: edges}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
