package inference

import (
	"context"
	"fmt"

	"github.com/kbukum/orthotile/errors"
	"github.com/kbukum/orthotile/logger"
	"github.com/kbukum/orthotile/observability"
	"github.com/kbukum/orthotile/pipeline"
	"github.com/kbukum/orthotile/provider"
	"github.com/kbukum/orthotile/session"
	"github.com/kbukum/orthotile/tiling"
)

// StageName is the name the inference stage reports in a chain.
const StageName = "inference"

// Option configures a Stage.
type Option func(*Stage)

// WithActivation replaces the default sigmoid.
func WithActivation(a Activation) Option {
	return func(s *Stage) { s.activation = a }
}

// WithMiddleware wraps the model calls, outermost first.
func WithMiddleware(mw ...provider.Middleware[[]tiling.Frame, [][]float32]) Option {
	return func(s *Stage) { s.middleware = append(s.middleware, mw...) }
}

// WithMetrics counts classified batches on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Stage) { s.metrics = m }
}

// Stage classifies every batch flowing through it.
type Stage struct {
	name       string
	labels     []string
	activation Activation
	middleware []provider.Middleware[[]tiling.Frame, [][]float32]
	metrics    *observability.Metrics
	exec       Classifier
	log        *logger.Logger

	batches int
}

// NewStage returns a stage calling model.
func NewStage(model Model, opts ...Option) *Stage {
	s := &Stage{
		name:       model.Name(),
		labels:     model.Labels(),
		activation: Sigmoid,
		log:        logger.Get("inference"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.exec = provider.Chain(s.middleware...)(model)
	return s
}

func (s *Stage) Name() string { return StageName }

// Labels returns the class names the scores are ordered by.
func (s *Stage) Labels() []string { return s.labels }

// Setup checks the model is ready. It acquires nothing.
func (s *Stage) Setup(ctx context.Context, _ session.Session) error {
	s.batches = 0
	if !s.exec.IsAvailable(ctx) {
		return errors.Capability(s.name, fmt.Errorf("model not available"))
	}
	return nil
}

func (s *Stage) Produce(ctx context.Context, upstream pipeline.Iterator[*tiling.Batch]) pipeline.Iterator[*tiling.Batch] {
	return pipeline.Map(pipeline.From(upstream), s.classify).Iter(ctx)
}

func (s *Stage) classify(ctx context.Context, b *tiling.Batch) (*tiling.Batch, error) {
	if b.Len() == 0 {
		b.Scores = [][]float32{}
		return b, nil
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanClassify)
	span.SetAttributes(observability.AttrTiles.Int(b.Len()))

	raw, err := s.exec.Execute(ctx, b.Frames)
	if err == nil {
		err = s.checkShape(b.Len(), raw)
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, errors.Capability(s.name, err).WithDetail("batch", s.batches)
	}

	scores := make([][]float32, len(raw))
	for i, vec := range raw {
		out := make([]float32, len(vec))
		for j, v := range vec {
			out[j] = s.activation(v)
		}
		scores[i] = out
	}
	b.Scores = scores
	s.batches++
	s.metrics.BatchEmitted(ctx, StageName)
	return b, nil
}

func (s *Stage) checkShape(n int, raw [][]float32) error {
	if len(raw) != n {
		return fmt.Errorf("model returned %d score vectors for %d frames", len(raw), n)
	}
	for i, vec := range raw {
		if len(vec) != len(s.labels) {
			return fmt.Errorf("score vector %d has %d values for %d classes", i, len(vec), len(s.labels))
		}
	}
	return nil
}

// Cleanup releases nothing; the model outlives the session.
func (s *Stage) Cleanup() error {
	s.log.Debug("inference finished", logger.Fields(logger.FieldBatches, s.batches))
	return nil
}
