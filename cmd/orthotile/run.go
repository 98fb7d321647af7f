package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/orthotile/app"
	"github.com/kbukum/orthotile/bootstrap"
	"github.com/kbukum/orthotile/component"
	"github.com/kbukum/orthotile/config"
	"github.com/kbukum/orthotile/heatmap"
	"github.com/kbukum/orthotile/inference"
	"github.com/kbukum/orthotile/inference/tflite"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/provider"
	"github.com/kbukum/orthotile/raster/gdal"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
	"github.com/kbukum/orthotile/version"
)

const serviceName = "orthotile"

// flagKeys maps run flags to configuration keys.
var flagKeys = map[string]string{
	"mode":                 "input.mode",
	"path-folder":          "input.path_folder",
	"path-session":         "input.path_session",
	"path-csv":             "input.path_csv",
	"index-start":          "input.index_start",
	"index-position":       "input.index_position",
	"crs":                  "tiling.crs",
	"tile-size":            "tiling.tile_size",
	"h-shift":              "tiling.h_shift",
	"v-shift":              "tiling.v_shift",
	"black-threshold":      "tiling.black_threshold",
	"white-threshold":      "tiling.white_threshold",
	"batch-size":           "tiling.batch_size",
	"model":                "model.path",
	"labels":               "model.labels",
	"no-progress":          "output.no_progress",
	"no-save":              "output.no_save",
	"no-prediction-raster": "output.no_raster",
	"clean":                "output.clean",
	"sqlite":               "output.sqlite",
}

func newRunCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the selected sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Path to a config.yml")
	f.String("mode", session.ModeFolder, "Session selection: folder, session or csv")
	f.String("path-folder", "", "Folder whose subdirectories are sessions")
	f.String("path-session", "", "Single session directory")
	f.String("path-csv", "", "CSV manifest listing session directories")
	f.Int("index-start", 0, "Skip sessions before this index")
	f.Int("index-position", -1, "Process only the session at this index")
	f.Int("crs", 32740, "EPSG code the mosaics must be in")
	f.Float64("tile-size", 1.5, "Tile side in metres")
	f.Float64("h-shift", 0, "Horizontal overlap fraction in [0, 1)")
	f.Float64("v-shift", 0, "Vertical overlap fraction in [0, 1)")
	f.Float64("black-threshold", 5, "Reject tiles with more black pixels than this percentage")
	f.Float64("white-threshold", 5, "Reject tiles with more white pixels than this percentage")
	f.Int("batch-size", 1, "Tiles per batch")
	f.String("model", "", "TensorFlow Lite model; empty extracts tiles only")
	f.String("labels", "", "Class labels of the model")
	f.Bool("no-progress", false, "Disable the progress display")
	f.Bool("no-save", false, "Do not write score tables or rasters")
	f.Bool("no-prediction-raster", false, "Do not reconstruct prediction rasters")
	f.Bool("clean", false, "Delete previous session outputs before running")
	f.Bool("sqlite", false, "Also write scores to a SQLite table")
	return cmd
}

// loadConfig resolves defaults, the config file, the environment and the
// flags, in increasing precedence.
func loadConfig(flags *pflag.FlagSet, configFile string) (*app.Config, error) {
	opts := make([]config.LoaderOption, 0, len(app.Defaults)+len(flagKeys)+1)
	for key, value := range app.Defaults {
		opts = append(opts, config.WithDefault(key, value))
	}
	for name, key := range flagKeys {
		opts = append(opts, config.WithFlag(key, flags.Lookup(name)))
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, config.WithConfigFile(configFile))
	}

	var cfg app.Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func run(ctx context.Context, cfg *app.Config) error {
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	a, err := bootstrap.NewApp(cfg)
	if err != nil {
		logger.Error("invalid configuration", logger.Fields(logger.FieldError, err.Error()))
		return err
	}

	sessions, err := session.Select(cfg.Selection())
	if err != nil {
		a.Logger.Error("session selection failed", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	if len(sessions) == 0 {
		a.Logger.Error("no sessions found", logger.Fields("mode", cfg.Input.Mode))
		return fmt.Errorf("no sessions found")
	}

	deps, err := wire(a)
	if err != nil {
		return err
	}
	factory, err := app.NewStageFactory(cfg, deps)
	if err != nil {
		return err
	}

	// Per-session failures land in the summary and do not change the exit code.
	return a.RunTask(ctx, func(ctx context.Context) error {
		d := app.NewDriver(factory,
			app.WithRunID(a.RunID),
			app.WithClean(cfg.Output.Clean),
			app.WithProgress(app.NewProgress(os.Stdout, !cfg.Output.NoProgress)),
			app.WithDriverMetrics(deps.Metrics),
		)
		d.Run(ctx, sessions)
		return nil
	})
}

// wire builds the run-lifetime collaborators and registers the ones with a
// lifecycle as components.
func wire(a *bootstrap.App[*app.Config]) (app.Deps, error) {
	cfg := a.Cfg
	deps := app.Deps{
		Opener:       gdal.NewOpener(),
		Transformers: gdal.NewFactory(),
	}

	if cfg.Observability.Enabled {
		if err := a.RegisterComponent(observability.NewTelemetry(cfg.Observability, a.Name, a.Version)); err != nil {
			return deps, err
		}
	}

	if cfg.Classify() {
		registry := inference.NewRegistry()
		tflite.Register(registry)
		model, err := registry.Create(cfg.Model.Backend, cfg.ModelSettings())
		if err != nil {
			return deps, err
		}
		if c, ok := model.(component.Component); ok {
			if err := a.RegisterComponent(c); err != nil {
				return deps, err
			}
		}
		deps.Model = model
	}

	// Instruments are bound lazily to the global meter provider, which the
	// telemetry component installs on start.
	if cfg.Observability.Enabled {
		m, err := observability.NewMetrics(observability.Meter(serviceName))
		if err != nil {
			return deps, err
		}
		deps.Metrics = m
	}

	deps.Middleware = []provider.Middleware[[]tiling.Frame, [][]float32]{
		provider.WithLogging[[]tiling.Frame, [][]float32](logger.Get("inference")),
		provider.WithMetrics[[]tiling.Frame, [][]float32](deps.Metrics),
		provider.WithTracing[[]tiling.Frame, [][]float32](a.Name),
	}

	switch cfg.Output.RasterFormat {
	case "tif":
		deps.Rasters = gdal.NewGridWriter()
	default:
		deps.Rasters = heatmap.NewPNGWriter()
	}
	return deps, nil
}
