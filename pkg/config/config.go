// Package config loads the YAML configuration shared by the preprocess and
// server commands.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"eroute/pkg/api"
	"eroute/pkg/elevation"
	"eroute/pkg/graph"
	"eroute/pkg/policy"
	"eroute/pkg/routing"
)

// Config is the root of the YAML document.
type Config struct {
	Server    api.ServerConfig `yaml:"server"`
	Routing   Routing          `yaml:"routing"`
	Profile   Profile          `yaml:"profile"`
	Elevation Elevation        `yaml:"elevation"`
	SQL       SQL              `yaml:"sql"`
	Build     Build            `yaml:"build"`
}

// Routing configures the query engine.
type Routing struct {
	Algorithm    string `yaml:"algorithm"`
	BatchWorkers int    `yaml:"batch_workers"`
}

// Profile is the build policy plus OSM way filtering.
type Profile struct {
	policy.Profile `yaml:",inline"`
	SkipJunctions  []string `yaml:"skip_junctions"`
	ForwardOnly    bool     `yaml:"forward_only"`
}

// Elevation points at an optional GeoTIFF height model.
type Elevation struct {
	Path string `yaml:"path"`
	// Bounds is [min_lon, min_lat, max_lon, max_lat] of the raster.
	Bounds [4]float64 `yaml:"bounds"`
	Scale  float64    `yaml:"scale"`
	Offset float64    `yaml:"offset"`
	// Signed marks int16 rasters.
	Signed bool `yaml:"signed"`
}

// SQL is the relational graph source.
type SQL struct {
	Driver string          `yaml:"driver"`
	DSN    string          `yaml:"dsn"`
	Tables graph.SQLTables `yaml:"tables"`
}

// Build configures graph construction.
type Build struct {
	Workers          int     `yaml:"workers"`
	LargestComponent bool    `yaml:"largest_component"`
	OSRMWeightScale  float64 `yaml:"osrm_weight_scale"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:  api.DefaultConfig(":8080"),
		Routing: Routing{Algorithm: routing.BellmanFord.String(), BatchWorkers: 4},
		Profile: Profile{
			Profile:       policy.DefaultProfile(),
			SkipJunctions: []string{"roundabout"},
		},
		Elevation: Elevation{Scale: 1},
		SQL:       SQL{Driver: "sqlite", Tables: graph.DefaultSQLTables()},
		Build:     Build{LargestComponent: true, OSRMWeightScale: 1},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.MaxConcurrent < 1 {
		errs = append(errs, errors.New("server.max_concurrent must be at least 1"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if _, err := routing.ParseAlgorithm(c.Routing.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("routing.algorithm: %w", err))
	}
	if _, err := c.Profile.Policy(nil); err != nil {
		errs = append(errs, fmt.Errorf("profile: %w", err))
	}
	if b := c.Elevation.Bounds; c.Elevation.Path != "" && (b[0] >= b[2] || b[1] >= b[3]) {
		errs = append(errs, errors.New("elevation.bounds must be [min_lon, min_lat, max_lon, max_lat]"))
	}
	if err := c.SQL.Tables.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sql.tables: %w", err))
	}
	if c.Build.OSRMWeightScale <= 0 {
		errs = append(errs, errors.New("build.osrm_weight_scale must be positive"))
	}
	return errors.Join(errs...)
}

// Bound returns Bounds as an orb.Bound.
func (e Elevation) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.Bounds[0], e.Bounds[1]},
		Max: orb.Point{e.Bounds[2], e.Bounds[3]},
	}
}

// Model loads the configured height model, or elevation.Flat when no path
// is set.
func (e Elevation) Model() (elevation.Model, error) {
	if e.Path == "" {
		return elevation.Flat{}, nil
	}
	var opts []elevation.TIFFOption
	if e.Signed {
		opts = append(opts, elevation.Signed())
	}
	g, err := elevation.LoadTIFFFile(e.Path, e.Bound(), e.Scale, e.Offset, opts...)
	if err != nil {
		return nil, err
	}
	return g, nil
}
