package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eroute/pkg/api"
	"eroute/pkg/config"
	"eroute/pkg/graph"
	"eroute/pkg/routing"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

type options struct {
	configPath string
	graphPath  string
	format     string
	addr       string
	corsOrigin string
	algorithm  string
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve route and reachability queries over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := setup(cmd, opts, logger)
			if err != nil {
				return err
			}
			return api.ListenAndServe(srv, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to YAML config")
	f.StringVar(&opts.graphPath, "graph", "graph.bin", "graph artifact written by preprocess")
	f.StringVar(&opts.format, "format", formatGraph, "graph file format: graph or osrm")
	f.StringVar(&opts.addr, "addr", "", "listen address, overrides server.addr")
	f.StringVar(&opts.corsOrigin, "cors-origin", "", "CORS allowed origin, overrides server.cors_origin")
	f.StringVar(&opts.algorithm, "algorithm", "", "bellman-ford or dijkstra, overrides routing.algorithm")
	return cmd
}

// setup loads configuration and the graph and assembles the HTTP server.
func setup(cmd *cobra.Command, opts options, logger *zap.Logger) (*http.Server, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if f.Changed("cors-origin") {
		cfg.Server.CORSOrigin = opts.corsOrigin
	}
	if f.Changed("algorithm") {
		cfg.Routing.Algorithm = opts.algorithm
	}
	algo, err := routing.ParseAlgorithm(cfg.Routing.Algorithm)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Info("loading graph", zap.String("path", opts.graphPath), zap.String("format", opts.format))
	g, err := loadGraph(opts.format, opts.graphPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	engine := routing.NewEngine(g, routing.WithAlgorithm(algo))
	if engine.Algorithm() != algo {
		logger.Warn("graph has negative weights, using bellman-ford", zap.String("requested", algo.String()))
	}
	logger.Info("graph ready",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.String("algorithm", engine.Algorithm().String()),
		zap.Duration("elapsed", time.Since(start)),
	)

	stats := api.StatsResponse{
		NumNodes:  g.NodeCount(),
		NumEdges:  g.EdgeCount(),
		Algorithm: engine.Algorithm().String(),
	}
	handlers := api.NewHandlers(engine, stats, cfg.Routing.BatchWorkers)
	return api.NewServer(cfg.Server, handlers, api.NewMetrics(), logger), nil
}

const (
	formatGraph = "graph"
	formatOSRM  = "osrm"
)

// loadGraph reads a preprocessed artifact or an OSRM-style file straight
// into the runtime graph.
func loadGraph(format, path string, cfg config.Config) (*graph.Graph, error) {
	switch format {
	case formatGraph, "":
		return graph.Load(path)
	case formatOSRM:
		return graph.LoadOSRM(path, graph.WithWeightScale(cfg.Build.OSRMWeightScale))
	default:
		return nil, fmt.Errorf("unknown graph format %q", format)
	}
}
