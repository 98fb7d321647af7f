package app

import (
	"context"

	"github.com/kbukum/orthotile/geo"
	"github.com/kbukum/orthotile/heatmap"
	"github.com/kbukum/orthotile/inference"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/persist"
	sqlitesink "github.com/kbukum/orthotile/persist/sqlite"
	"github.com/kbukum/orthotile/pipeline"
	"github.com/kbukum/orthotile/provider"
	"github.com/kbukum/orthotile/raster"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
)

// Stage is a link of a session chain.
type Stage = pipeline.Stage[session.Session, *tiling.Batch]

// Source is the first stage of a session chain. Its counters feed the run
// summary.
type Source interface {
	Stage
	Stats() tiling.Stats
}

// Stages is the chain of one session.
type Stages struct {
	Source Source
	// Stages follow the source in order. Nil entries are skipped.
	Stages []Stage
	// PostProcess runs after a clean teardown. Nil skips it.
	PostProcess func(ctx context.Context) ([]string, error)
}

// StageFactory builds fresh stages for every session, so no state crosses
// session boundaries.
type StageFactory interface {
	NewStages(sess session.Session) (Stages, error)
}

// StageFactoryFunc adapts a function to StageFactory.
type StageFactoryFunc func(sess session.Session) (Stages, error)

func (f StageFactoryFunc) NewStages(sess session.Session) (Stages, error) { return f(sess) }

// Deps are the run-lifetime collaborators of the default factory.
type Deps struct {
	Opener       raster.Opener
	Transformers geo.Factory
	// Model is the classifier of the run. Nil extracts tiles only.
	Model      inference.Model
	Middleware []provider.Middleware[[]tiling.Frame, [][]float32]
	// Rasters writes reconstructed class grids. Nil skips reconstruction.
	Rasters heatmap.Writer
	Metrics *observability.Metrics
}

type stageFactory struct {
	cfg        *Config
	deps       Deps
	activation inference.Activation
	method     heatmap.Method
}

// NewStageFactory returns the factory of the standard chain:
// extractor, classifier, CSV sink, SQLite sink, then raster reconstruction.
func NewStageFactory(cfg *Config, deps Deps) (StageFactory, error) {
	activation, err := inference.ActivationByName(cfg.Model.Activation)
	if err != nil {
		return nil, err
	}
	method, err := heatmap.ParseMethod(cfg.Output.Interpolation)
	if err != nil {
		return nil, err
	}
	return &stageFactory{cfg: cfg, deps: deps, activation: activation, method: method}, nil
}

func (f *stageFactory) NewStages(sess session.Session) (Stages, error) {
	m := f.deps.Metrics
	ex := tiling.NewExtractor(f.cfg.Params(), f.deps.Opener, f.deps.Transformers, tiling.WithMetrics(m))
	st := Stages{Source: ex}

	model := f.deps.Model
	if model == nil {
		return st, nil
	}
	st.Stages = append(st.Stages, inference.NewStage(model,
		inference.WithActivation(f.activation),
		inference.WithMiddleware(f.deps.Middleware...),
		inference.WithMetrics(m),
	))
	if f.cfg.Output.NoSave {
		return st, nil
	}

	name, labels := model.Name(), model.Labels()
	csv := persist.NewCSV(labels, persist.CSVPathFunc(name), persist.WithCSVMetrics(m))
	st.Stages = append(st.Stages, csv)
	if f.cfg.Output.SQLite {
		st.Stages = append(st.Stages, sqlitesink.New(labels, sqlitesink.PathFunc(name), sqlitesink.WithMetrics(m)))
	}
	if f.cfg.Output.NoRaster || f.deps.Rasters == nil {
		return st, nil
	}
	st.PostProcess = func(ctx context.Context) ([]string, error) {
		dx, dy := ex.Cell()
		return heatmap.Reconstruct(ctx, heatmap.Request{
			CSVPath:   csv.Path(),
			Session:   sess.Name,
			OutputDir: sess.OutputDir(),
			Classes:   labels,
			Method:    f.method,
			CellX:     dx,
			CellY:     dy,
			EPSG:      f.cfg.Tiling.CRS,
		}, f.deps.Rasters)
	}
	return st, nil
}
