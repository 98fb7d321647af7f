package app

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/pipeline"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
)

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClean removes each session output directory before the session runs.
func WithClean(clean bool) DriverOption {
	return func(d *Driver) { d.clean = clean }
}

// WithProgress sets the tile counter.
func WithProgress(p *Progress) DriverOption {
	return func(d *Driver) { d.progress = p }
}

// WithObserver reports every state transition to fn.
func WithObserver(fn Observer) DriverOption {
	return func(d *Driver) { d.observer = fn }
}

// WithDriverMetrics records session outcomes on m.
func WithDriverMetrics(m *observability.Metrics) DriverOption {
	return func(d *Driver) { d.metrics = m }
}

// WithRunID sets the identifier of the run. The default is a random UUID.
func WithRunID(id string) DriverOption {
	return func(d *Driver) { d.runID = id }
}

// WithDriverLogger replaces the component logger.
func WithDriverLogger(l *logger.Logger) DriverOption {
	return func(d *Driver) { d.log = l }
}

// Driver runs sessions sequentially. A failed session is recorded and the
// run moves on; an interrupt ends the run after the current session has
// been cleaned up.
type Driver struct {
	factory  StageFactory
	clean    bool
	progress *Progress
	observer Observer
	metrics  *observability.Metrics
	runID    string
	log      *logger.Logger

	state State
}

// NewDriver returns a driver building each session chain with factory.
func NewDriver(factory StageFactory, opts ...DriverOption) *Driver {
	d := &Driver{
		factory:  factory,
		progress: NewProgress(io.Discard, false),
		log:      logger.Get("driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	return d
}

// RunID returns the identifier of the run.
func (d *Driver) RunID() string { return d.runID }

// State returns the current state.
func (d *Driver) State() State { return d.state }

// Run processes sessions in order and returns the summary. It never
// returns early on a session failure.
func (d *Driver) Run(ctx context.Context, sessions []session.Session) *Summary {
	start := time.Now()
	sum := &Summary{RunID: d.runID}
	d.state = Idle
	d.log.Info("run started", logger.Fields(logger.FieldRunID, d.runID, "sessions", len(sessions)))

	for _, sess := range sessions {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		res := d.runSession(ctx, sess)
		sum.Sessions = append(sum.Sessions, res)
		if res.State == Done {
			sum.Interrupted = true
			break
		}
	}
	if d.state != Done {
		d.transition("", Done, nil)
	}
	sum.Elapsed = time.Since(start)
	sum.Log(d.log)
	return sum
}

func (d *Driver) runSession(ctx context.Context, sess session.Session) SessionResult {
	start := time.Now()
	res := SessionResult{Name: sess.Name}
	ctx, span := observability.StartSpan(ctx, observability.SpanSession, trace.WithAttributes(
		observability.AttrSession.String(sess.Name),
		observability.AttrRunID.String(d.runID),
	))

	d.transition(sess.Name, SessionSetup, nil)
	err := d.execute(ctx, sess, &res)
	res.Elapsed = time.Since(start)

	switch {
	case canceled(ctx, err):
		res.State = Done
		if !errors.HasCode(err, errors.ErrCodeCanceled) {
			err = errors.Canceled(err)
		}
	case err != nil:
		res.State = Failed
	default:
		res.State = Success
	}
	res.Err = err
	d.transition(sess.Name, res.State, err)

	span.SetAttributes(
		observability.AttrStatus.String(res.State.String()),
		observability.AttrTiles.Int(res.Tiles),
		observability.AttrBatches.Int(res.Batches),
	)
	observability.EndSpan(span, err)
	d.metrics.SessionFinished(ctx, res.State.String(), res.Elapsed)
	return res
}

func (d *Driver) execute(ctx context.Context, sess session.Session, res *SessionResult) error {
	start := time.Now()
	log := d.log.WithSession(sess.Name).WithContext(ctx)
	if err := d.prepare(sess); err != nil {
		return err
	}
	stages, err := d.factory.NewStages(sess)
	if err != nil {
		return err
	}
	if stages.Source == nil {
		return errors.Internal(stderrors.New("stage factory returned no source"))
	}

	chain := pipeline.NewChain(append([]Stage{stages.Source}, stages.Stages...)...)
	it, err := chain.Open(ctx, sess)
	if err != nil {
		return err
	}

	d.transition(sess.Name, Running, nil)
	d.progress.Start(sess.Name)
	runErr := d.drain(ctx, it)
	d.progress.Finish()

	d.transition(sess.Name, SessionTeardown, runErr)
	closeErr := it.Close()

	st := stages.Source.Stats()
	res.Tiles, res.Rejected, res.Batches = st.Accepted, st.Rejected(), st.Batches
	if err := stderrors.Join(runErr, closeErr); err != nil {
		return err
	}

	if stages.PostProcess != nil {
		paths, err := stages.PostProcess(ctx)
		res.Rasters = paths
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.PostProcess("raster", err)
			}
			return err
		}
	}
	log.Info("session finished", logger.Fields(
		logger.FieldTiles, res.Tiles,
		logger.FieldBatches, res.Batches,
		"rejected", res.Rejected,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return nil
}

// prepare empties the output directory when cleaning and creates it.
func (d *Driver) prepare(sess session.Session) error {
	dir := sess.OutputDir()
	if d.clean {
		if err := os.RemoveAll(dir); err != nil {
			return errors.Storage("clean", err).WithDetail("path", dir)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Storage("mkdir", err).WithDetail("path", dir)
	}
	return nil
}

func (d *Driver) drain(ctx context.Context, it pipeline.Iterator[*tiling.Batch]) error {
	for {
		b, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		d.progress.Add(b.Len())
	}
}

func (d *Driver) transition(sess string, to State, err error) {
	t := Transition{Session: sess, From: d.state, To: to, Err: err}
	d.state = to

	fields := logger.Fields(logger.FieldState, to.String(), "from", t.From.String())
	if sess != "" {
		fields[logger.FieldSession] = sess
	}
	if err != nil {
		fields[logger.FieldError] = err.Error()
	}
	if to == Failed {
		d.log.Error("session state", fields)
	} else {
		d.log.Debug("session state", fields)
	}
	if d.observer != nil {
		d.observer(t)
	}
}

func canceled(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil || errors.HasCode(err, errors.ErrCodeCanceled) || stderrors.Is(err, context.Canceled)
}
