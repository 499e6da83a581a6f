package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		logger.Error("preprocess failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Build a routing graph artifact",
		Long: `Reads an OpenStreetMap extract (.osm.pbf or .osm XML), an OSRM-style
road network file, or a SQL database and writes the graph artifact the
server loads.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to YAML config")
	f.StringVarP(&opts.input, "input", "i", "", "input file (.osm.pbf, .osm, .osrm); unused for sql")
	f.StringVarP(&opts.output, "output", "o", "graph.bin", "output graph artifact")
	f.StringVar(&opts.format, "format", "", "input format: pbf, xml, osrm or sql (default: from file extension)")
	f.StringVar(&opts.dsn, "dsn", "", "SQL data source name, overrides sql.dsn")
	f.IntVar(&opts.workers, "workers", 0, "edge weighting goroutines, overrides build.workers")
	f.BoolVar(&opts.largest, "largest-component", true, "keep only the largest connected component, overrides build.largest_component")
	f.Float64Var(&opts.osrmScale, "osrm-scale", 1, "multiplier for OSRM edge weights, overrides build.osrm_weight_scale")
	return cmd
}
