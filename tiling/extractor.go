package tiling

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"os"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/geo"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/pipeline"
	"github.com/kbukum/orthotile/raster"
	"github.com/kbukum/orthotile/session"
)

// StageName is the name the extractor reports in a chain.
const StageName = "extractor"

// Stats counts what one session's scan did.
type Stats struct {
	Scanned       int
	RejectedBlack int
	RejectedWhite int
	Accepted      int
	Batches       int
}

// Rejected is the total number of rejected windows.
func (s Stats) Rejected() int { return s.RejectedBlack + s.RejectedWhite }

// Option configures an Extractor.
type Option func(*Extractor)

// WithMetrics records scan counters on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// Extractor is the source stage of a session chain. It owns the mosaic and
// the reprojection of one session between Setup and Cleanup.
type Extractor struct {
	params  Params
	opener  raster.Opener
	factory geo.Factory
	metrics *observability.Metrics
	log     *logger.Logger

	sess        session.Session
	mosaic      raster.Mosaic
	transformer geo.Transformer
	transform   geo.Affine
	grid        Grid
	stats       Stats
}

// NewExtractor returns an extractor reading mosaics through opener and
// reprojecting through transformers built by factory.
func NewExtractor(p Params, opener raster.Opener, factory geo.Factory, opts ...Option) *Extractor {
	e := &Extractor{
		params:  p,
		opener:  opener,
		factory: factory,
		log:     logger.Get("tiling"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Name() string { return StageName }

// Setup resolves the session inputs, opens the mosaic and derives the grid.
// Every failure is a CONFIGURATION_ERROR and leaves nothing open.
func (e *Extractor) Setup(ctx context.Context, sess session.Session) error {
	e.sess = sess
	e.stats = Stats{}
	e.mosaic, e.transformer = nil, nil

	orthoPath := sess.OrthophotoPath()
	if !isFile(orthoPath) {
		return errors.MosaicNotFound(orthoPath)
	}
	statsPath := sess.StatsPath()
	if !isFile(statsPath) {
		return errors.StatsNotFound(statsPath)
	}
	gsd, err := ReadGSD(statsPath)
	if err != nil {
		return err
	}

	m, err := e.opener.Open(orthoPath)
	if err != nil {
		return errors.Configuration("cannot open orthophoto").
			WithDetail("path", orthoPath).WithCause(err)
	}
	same, err := m.MatchesEPSG(e.params.EPSG)
	if err != nil || !same {
		_ = m.Close()
		return errors.CRSMismatch(orthoPath, e.params.EPSG).WithCause(err)
	}
	grid, err := NewGrid(m.Width(), m.Height(), gsd, e.params)
	if err != nil {
		_ = m.Close()
		return err
	}
	tr, err := e.factory.NewTransformer(e.params.EPSG)
	if err != nil {
		_ = m.Close()
		return errors.Configuration(fmt.Sprintf("cannot reproject EPSG:%d", e.params.EPSG)).WithCause(err)
	}

	e.mosaic, e.transformer = m, tr
	e.transform = m.GeoTransform()
	e.grid = grid
	e.log.WithSession(sess.Name).Info("mosaic opened", logger.Fields(
		logger.FieldPath, orthoPath,
		"gsd", gsd,
		"width", m.Width(),
		"height", m.Height(),
		"side", grid.Side,
		"windows", grid.Len(),
	))
	return nil
}

// Produce scans the grid lazily. The upstream iterator is ignored and
// closed with the returned iterator.
func (e *Extractor) Produce(ctx context.Context, upstream pipeline.Iterator[*Batch]) pipeline.Iterator[*Batch] {
	cursor := e.grid.Windows()
	windows := pipeline.FromFunc(func(context.Context) (Window, bool, error) {
		w, ok := cursor.Next()
		return w, ok, nil
	}, upstream.Close)

	read := pipeline.Map(windows, e.read)
	kept := pipeline.Filter(read, func(t Tile) bool { return e.accept(ctx, t) })
	geocoded := pipeline.Map(kept, e.geocode)
	grouped := pipeline.Batch(geocoded, e.params.BatchSize)
	batches := pipeline.Map(grouped, func(ctx context.Context, tiles []Tile) (*Batch, error) {
		b := NewBatch(len(tiles))
		for _, t := range tiles {
			b.Append(t)
		}
		e.stats.Batches++
		e.metrics.BatchEmitted(ctx, StageName)
		return b, nil
	})
	return batches.Iter(ctx)
}

func (e *Extractor) read(ctx context.Context, w Window) (Tile, error) {
	f := NewFrame(w.Side)
	if err := e.mosaic.ReadRGB(w.Col, w.Row, w.Side, f.Pix); err != nil {
		return Tile{}, fmt.Errorf("read window row %d col %d: %w", w.Row, w.Col, err)
	}
	e.stats.Scanned++
	e.metrics.TileScanned(ctx)
	return Tile{Window: w, Frame: f}, nil
}

func (e *Extractor) accept(ctx context.Context, t Tile) bool {
	switch Inspect(t.Frame, e.params.BlackThreshold, e.params.WhiteThreshold) {
	case RejectBlack:
		e.stats.RejectedBlack++
		e.metrics.TileRejected(ctx, observability.ReasonBlack)
		return false
	case RejectWhite:
		e.stats.RejectedWhite++
		e.metrics.TileRejected(ctx, observability.ReasonWhite)
		return false
	}
	e.stats.Accepted++
	e.metrics.TileAccepted(ctx)
	return true
}

func (e *Extractor) geocode(_ context.Context, t Tile) (Tile, error) {
	w := t.Window
	t.Centroid = geo.Centroid(e.transform.WindowBounds(w.Col, w.Row, w.Side, w.Side))
	pos, err := e.transformer.ToWGS84(t.Centroid)
	if err != nil {
		return Tile{}, fmt.Errorf("geocode window row %d col %d: %w", w.Row, w.Col, err)
	}
	t.Position = pos
	t.ID = TileID(e.sess.Name, t.Centroid)
	return t, nil
}

// Cleanup releases the transformer and the mosaic and logs the scan
// counters.
func (e *Extractor) Cleanup() error {
	var errs []error
	if e.transformer != nil {
		if err := e.transformer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transformer: %w", err))
		}
		e.transformer = nil
	}
	if e.mosaic != nil {
		if err := e.mosaic.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mosaic: %w", err))
		}
		e.mosaic = nil

		log := e.log.WithSession(e.sess.Name)
		fields := logger.Fields(
			"scanned", e.stats.Scanned,
			"rejected_black", e.stats.RejectedBlack,
			"rejected_white", e.stats.RejectedWhite,
			logger.FieldTiles, e.stats.Accepted,
			logger.FieldBatches, e.stats.Batches,
		)
		if e.stats.Accepted == 0 {
			log.Warn("no tiles accepted", fields)
		} else {
			log.Info("scan finished", fields)
		}
	}
	return stderrors.Join(errs...)
}

// Stats returns the counters of the current or last session.
func (e *Extractor) Stats() Stats { return e.stats }

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Cell returns the native distance between neighbouring tile centroids of
// the current or last session.
func (e *Extractor) Cell() (dx, dy float64) {
	return float64(e.grid.XStride) * math.Abs(e.transform[1]),
		float64(e.grid.YStride) * math.Abs(e.transform[5])
}
