package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eroute/pkg/config"
	"eroute/pkg/graph"
	"eroute/pkg/osm"
)

const (
	formatPBF  = "pbf"
	formatXML  = "xml"
	formatOSRM = "osrm"
	formatSQL  = "sql"
)

type options struct {
	configPath string
	input      string
	output     string
	format     string
	dsn        string
	workers    int
	largest    bool
	osrmScale  float64
}

// detectFormat guesses the input format from the file name.
func detectFormat(path string) (string, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".pbf"):
		return formatPBF, nil
	case strings.HasSuffix(name, ".osm"), strings.HasSuffix(name, ".xml"):
		return formatXML, nil
	case strings.HasSuffix(name, ".osrm"):
		return formatOSRM, nil
	default:
		return "", fmt.Errorf("cannot tell the format of %q; use --format", path)
	}
}

// applyFlags copies explicitly set flags over the file configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts options) {
	f := cmd.Flags()
	if f.Changed("dsn") {
		cfg.SQL.DSN = opts.dsn
	}
	if f.Changed("workers") {
		cfg.Build.Workers = opts.workers
	}
	if f.Changed("largest-component") {
		cfg.Build.LargestComponent = opts.largest
	}
	if f.Changed("osrm-scale") {
		cfg.Build.OSRMWeightScale = opts.osrmScale
	}
}

func run(ctx context.Context, cmd *cobra.Command, opts options, logger *zap.Logger) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg, opts)

	format := opts.format
	if format == "" {
		if format, err = detectFormat(opts.input); err != nil {
			return err
		}
	}

	start := time.Now()
	p, err := load(ctx, cfg, format, opts.input, logger)
	if err != nil {
		return err
	}
	logger.Info("graph built",
		zap.Int("nodes", len(p.Nodes)),
		zap.Int("edges", len(p.Edges)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := graph.WriteFile(opts.output, p); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	if info, err := os.Stat(opts.output); err == nil {
		logger.Info("artifact written",
			zap.String("path", opts.output),
			zap.Float64("size_mb", float64(info.Size())/(1024*1024)),
		)
	}
	return nil
}

// load produces the persisted graph from the chosen source.
func load(ctx context.Context, cfg config.Config, format, input string, logger *zap.Logger) (*graph.Persisted, error) {
	var (
		p   *graph.Persisted
		err error
	)
	switch format {
	case formatPBF, formatXML:
		return buildOSM(ctx, cfg, format, input, logger)
	case formatOSRM:
		p, err = graph.ReadOSRM(input, graph.WithWeightScale(cfg.Build.OSRMWeightScale))
	case formatSQL:
		p, err = loadSQL(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Build.LargestComponent {
		before := len(p.Nodes)
		p = graph.LargestComponent(p)
		logger.Info("largest component", zap.Int("nodes", len(p.Nodes)), zap.Int("of", before))
	}
	return p, nil
}

func buildOSM(ctx context.Context, cfg config.Config, format, input string, logger *zap.Logger) (*graph.Persisted, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	terrain, err := cfg.Elevation.Model()
	if err != nil {
		return nil, fmt.Errorf("load elevation: %w", err)
	}
	pol, err := cfg.Profile.Policy(terrain)
	if err != nil {
		return nil, err
	}

	osmFormat := osm.FormatPBF
	if format == formatXML {
		osmFormat = osm.FormatXML
	}
	src := osm.NewFileSource(f, osmFormat, osm.Options{
		SkipJunctions: cfg.Profile.SkipJunctions,
		ForwardOnly:   cfg.Profile.ForwardOnly,
	})

	opts := []graph.BuildOption{
		graph.WithProgress(func(stage string, n int) {
			logger.Info("build stage done", zap.String("stage", stage), zap.Int("count", n))
		}),
		graph.WithWorkers(cfg.Build.Workers),
	}
	if cfg.Build.LargestComponent {
		opts = append(opts, graph.WithLargestComponent())
	}
	return graph.Build(ctx, src, pol, opts...)
}

func loadSQL(ctx context.Context, cfg config.Config) (*graph.Persisted, error) {
	if cfg.SQL.DSN == "" {
		return nil, errors.New("sql source needs a DSN (sql.dsn or --dsn)")
	}
	db, err := sql.Open(cfg.SQL.Driver, cfg.SQL.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return graph.LoadSQL(ctx, db, cfg.SQL.Tables)
}
